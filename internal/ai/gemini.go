package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.0-flash"

// ExtractedTask is one homework item the LLM found in a transcript.
type ExtractedTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// QuizQuestion is a generated multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type LLMClient struct {
	client *genai.Client

	// Two preconfigured models so concurrent calls never mutate shared
	// generation settings.
	textModel *genai.GenerativeModel
	jsonModel *genai.GenerativeModel
}

func NewLLMClient(ctx context.Context) (*LLMClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	textModel := client.GenerativeModel(geminiModel)
	textModel.SetTemperature(0.3)
	textModel.ResponseMIMEType = "text/plain"

	jsonModel := client.GenerativeModel(geminiModel)
	jsonModel.SetTemperature(0.3)
	jsonModel.ResponseMIMEType = "application/json"

	return &LLMClient{
		client:    client,
		textModel: textModel,
		jsonModel: jsonModel,
	}, nil
}

func (c *LLMClient) Available() bool {
	return c != nil && c.client != nil
}

func (c *LLMClient) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}

// GenerateSummary produces a concise prose summary of a lecture transcript.
func (c *LLMClient) GenerateSummary(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following lecture transcript for students.
Write a clear, well-structured summary of at most 500 words covering the main
topics and explanations. Return only the summary text, no preamble.

Transcript:
%s`, text)

	raw, err := c.generate(ctx, c.textModel, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ExtractKeyPoints pulls the most important points out of a transcript.
func (c *LLMClient) ExtractKeyPoints(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(`Extract the key points from the following lecture transcript.
Return a JSON array of short strings, each one key point, most important first.
Return only the JSON array, no additional text.

Transcript:
%s`, text)

	raw, err := c.generate(ctx, c.jsonModel, prompt)
	if err != nil {
		return nil, err
	}
	return ParseKeyPoints(raw)
}

// ExtractTasks finds homework, assignments and action items mentioned in a
// transcript.
func (c *LLMClient) ExtractTasks(ctx context.Context, text string) ([]ExtractedTask, error) {
	prompt := fmt.Sprintf(`Identify every homework assignment, task or action item the
teacher mentions in the following lecture transcript.
For each one provide:
- title: a short task title
- description: what the student has to do
- priority: "high", "medium" or "low"
- due_date: "YYYY-MM-DD" if a deadline is mentioned, otherwise null
Return a JSON array of objects with exactly these fields. Return an empty
array when no tasks are mentioned. Return only the JSON array.

Transcript:
%s`, text)

	raw, err := c.generate(ctx, c.jsonModel, prompt)
	if err != nil {
		return nil, err
	}
	return ParseTasks(raw)
}

// GenerateQuiz builds multiple-choice questions from a transcript.
func (c *LLMClient) GenerateQuiz(ctx context.Context, text string, numQuestions int) ([]QuizQuestion, error) {
	if numQuestions < 1 {
		numQuestions = 5
	}

	prompt := fmt.Sprintf(`Generate %d quiz questions based on the following text.
For each question provide:
- question: the question text
- options: an array of 4 multiple choice options
- correct_answer: the index (0-3) of the correct option
- explanation: a brief explanation of why this is the correct answer
Return only a JSON array of objects with these fields.

Text:
%s`, numQuestions, text)

	raw, err := c.generate(ctx, c.jsonModel, prompt)
	if err != nil {
		return nil, err
	}

	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(StripJSONFence(raw)), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse quiz response: %w", err)
	}
	return questions, nil
}

func (c *LLMClient) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from LLM")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt), nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}

// StripJSONFence removes a surrounding markdown code fence from an LLM reply.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseKeyPoints decodes a JSON array of key-point strings.
func ParseKeyPoints(raw string) ([]string, error) {
	var points []string
	if err := json.Unmarshal([]byte(StripJSONFence(raw)), &points); err != nil {
		return nil, fmt.Errorf("failed to parse key points response: %w", err)
	}
	return points, nil
}

// ParseTasks decodes a JSON array of extracted tasks, normalizing priorities.
func ParseTasks(raw string) ([]ExtractedTask, error) {
	var tasks []ExtractedTask
	if err := json.Unmarshal([]byte(StripJSONFence(raw)), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks response: %w", err)
	}

	for i := range tasks {
		switch strings.ToLower(tasks[i].Priority) {
		case "high", "medium", "low":
			tasks[i].Priority = strings.ToLower(tasks[i].Priority)
		default:
			tasks[i].Priority = "medium"
		}
		if tasks[i].Title == "" {
			tasks[i].Title = "Extracted Task"
		}
	}
	return tasks, nil
}
