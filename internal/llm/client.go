package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// TranslateQuestion asks the model for a single Prolog query answering the
// question over the given predicate vocabulary. prevError carries the parse
// failure from an earlier attempt so the model can revise; empty on the
// first try.
func (c *Client) TranslateQuestion(ctx context.Context, question string, predicates []string, prevError string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("You are an expert at translating natural language questions into Prolog queries.\n\n")
	if len(predicates) > 0 {
		buf.WriteString("Available predicates:\n")
		for _, p := range predicates {
			fmt.Fprintf(&buf, "- %s\n", p)
		}
		buf.WriteString("\n")
	}
	buf.WriteString(`Guidelines:
1. Return ONLY the Prolog query, nothing else
2. Use lowercase for atoms (john, not John)
3. Use uppercase for variables (X, Y, Who)

Examples:
Q: "Who are the parents of mary?"
A: parent(X, mary)
Q: "Is john the father of mary?"
A: father(john, mary)
`)
	if prevError != "" {
		fmt.Fprintf(&buf, `
PREVIOUS ATTEMPT FAILED WITH ERROR:
%s

Revise the query to fix this error. Check atom spelling, variable casing, and the predicate list above.
`, prevError)
	}

	out, err := c.Chat(ctx, buf.String(), question)
	if err != nil {
		return "", err
	}
	return stripFences(out), nil
}

// JudgeRelevance scores 0..1 whether the retrieved statements can answer
// the question. Transport failures return an error; unparseable replies
// fall back to 0.8 so the pipeline proceeds without refinement.
func (c *Client) JudgeRelevance(ctx context.Context, question string, statements []string) (float64, error) {
	system := `You judge whether retrieved logic statements can answer a question.

Check that the entities in the question appear, that the direct facts are present, and that any rule needed to derive the relationship is present. Rules contain the ":-" connective. A question about a derived relationship scores below 0.7 when no rule for it was retrieved.

Reply with a single line:
SCORE: <number between 0 and 1>`

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Question: %s\n\nRetrieved statements:\n", question)
	for i, s := range statements {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, s)
	}
	buf.WriteString("\nJudge the relevancy:")

	out, err := c.Chat(ctx, system, buf.String())
	if err != nil {
		return 0, err
	}
	return parseScore(out), nil
}

// RefineSearch asks for a rewritten retrieval query that would surface
// the statements the previous pass missed.
func (c *Client) RefineSearch(ctx context.Context, question string, previous []string) (string, error) {
	system := `You improve retrieval queries for a logic knowledge base.

Given a question and the statements already retrieved, reply with ONE short search query that would surface the missing facts or rules. Reply with the query text only.`

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Question: %s\n\nAlready retrieved:\n", question)
	for i, s := range previous {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, s)
	}

	out, err := c.Chat(ctx, system, buf.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ExtractProgram turns prose into a Prolog program, one statement per
// line. prevError carries the vet or parse failure from an earlier
// attempt; empty on the first try.
func (c *Client) ExtractProgram(ctx context.Context, text, prevError string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`You are a Prolog expert. Generate only valid Prolog code.

Extract facts and rules from the provided text. One statement per line, each ending with a period. Use lowercase atoms and uppercase variables. No directives, no comments, no prose.`)
	if prevError != "" {
		fmt.Fprintf(&buf, `

PREVIOUS ATTEMPT FAILED WITH ERROR:
%s

Revise the program to fix this error.
`, prevError)
	}

	out, err := c.Chat(ctx, buf.String(), text)
	if err != nil {
		return "", err
	}
	return stripFences(out), nil
}

// Answer builds the grounded final answer from a finished proof.
func (c *Client) Answer(ctx context.Context, question, goal string, provable bool, bindings []string, trace string) (string, error) {
	system := `You are an expert at explaining logical reasoning.

Given a question, a result, and a proof trace, provide a clear natural language answer. Be concise but mention the key deduction steps.`

	result := "False"
	if provable {
		result = "True"
	}
	bound := "none"
	if len(bindings) > 0 {
		bound = strings.Join(bindings, "; ")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Question: %s\nGoal: %s\nResult: %s\nBindings: %s\n", question, goal, result, bound)
	if trace != "" {
		fmt.Fprintf(&buf, "Trace:\n%s\n", trace)
	}
	buf.WriteString("\nProvide a natural language answer:")

	return c.Chat(ctx, system, buf.String())
}

func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// stripFences removes the markdown code fences models wrap Prolog in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```prolog", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseScore reads a "SCORE: 0.85" line from a judge reply. Unparseable
// replies score 0.8 so a flaky judge never blocks the pipeline.
func parseScore(reply string) float64 {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "SCORE:"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
				return clampScore(v)
			}
		}
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64); err == nil {
		return clampScore(v)
	}
	return 0.8
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
