package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"quizify/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	batches   [][]string
	tasks     []genai.TaskType
	embedErr  error
	dim       int
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeBackend) embed(_ context.Context, task genai.TaskType, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.tasks = append(f.tasks, task)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		for j := range v {
			v[j] = float32(len(t) + j)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeBackend) complete(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no more responses")
}

func newTestClient(b backend) *Client {
	return &Client{backend: b}
}

func questionJSON(text, answer string) string {
	return fmt.Sprintf(`{"question":%q,"choices":[{"key":"a","value":"One"},{"key":"b","value":"Two"},{"key":"c","value":"Three"},{"key":"d","value":"Four"}],"answer":%q,"explanation":"Because."}`, text, answer)
}

func quizJSON(questions ...string) string {
	return `{"questions":[` + strings.Join(questions, ",") + `]}`
}

func TestEmbedManyBatches(t *testing.T) {
	fb := &fakeBackend{dim: 4}
	c := newTestClient(fb)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	vectors, err := c.EmbedMany(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 250)

	require.Len(t, fb.batches, 3)
	assert.Len(t, fb.batches[0], 100)
	assert.Len(t, fb.batches[1], 100)
	assert.Len(t, fb.batches[2], 50)
	assert.Equal(t, "chunk 200", fb.batches[2][0])
	for _, task := range fb.tasks {
		assert.Equal(t, genai.TaskTypeRetrievalDocument, task)
	}
}

func TestEmbedFailuresAreEmbeddingErrors(t *testing.T) {
	fb := &fakeBackend{dim: 3, embedErr: errors.New("quota exceeded")}
	c := newTestClient(fb)

	_, err := c.EmbedMany(context.Background(), []string{"a", "b"})
	var embErr *models.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "documents", embErr.Op)
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = c.Embed(context.Background(), "topic")
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "query", embErr.Op)

	_, err = c.EmbedMany(context.Background(), nil)
	assert.ErrorAs(t, err, &embErr)

	_, err = newTestClient(&fakeBackend{dim: 0}).EmbedMany(context.Background(), []string{"x"})
	assert.ErrorAs(t, err, &embErr, "empty vectors must not pass as embeddings")
}

func TestEmbedUsesQueryTask(t *testing.T) {
	fb := &fakeBackend{dim: 2}
	v, err := newTestClient(fb).Embed(context.Background(), "photosynthesis")
	require.NoError(t, err)
	assert.Len(t, v, 2)
	assert.Equal(t, []genai.TaskType{genai.TaskTypeRetrievalQuery}, fb.tasks)
}

func TestParseQuiz(t *testing.T) {
	body := quizJSON(
		questionJSON("What is one?", "a"),
		questionJSON("What is two?", "B"),
		questionJSON("  what is   ONE? ", "c"), // repeat
		questionJSON("What is four?", "e"),    // answer not among the choices
		questionJSON("What is three?", "c"),
	)

	bank, err := parseQuiz(body, 3)
	require.NoError(t, err)
	require.Len(t, bank, 3)
	assert.Equal(t, "What is one?", bank[0].Question)
	assert.Equal(t, "b", bank[1].Answer)
	assert.Equal(t, "What is three?", bank[2].Question)

	bank, err = parseQuiz(body, 2)
	require.NoError(t, err)
	assert.Len(t, bank, 2)

	_, err = parseQuiz(body, 4)
	assert.ErrorContains(t, err, "got 3 valid questions, want 4")

	_, err = parseQuiz(`{"questions":[],"title":"x"}`, 1)
	assert.ErrorContains(t, err, "failed to parse JSON response")

	_, err = parseQuiz("I cannot help with that.", 1)
	assert.ErrorContains(t, err, "no JSON content")
}

func TestExtractJSONFromText(t *testing.T) {
	obj := quizJSON(questionJSON("Q?", "a"))

	assert.Equal(t, obj, extractJSONFromText(obj))
	assert.Equal(t, obj, extractJSONFromText("Here is your quiz:\n```json\n"+obj+"\n```\nEnjoy!"))
	assert.Equal(t, obj, extractJSONFromText("Sure! "+obj+" Let me know."))
	assert.Equal(t, `{"questions":[{"question":"a {b} \"c\""}]}`,
		extractJSONFromText(`{"questions":[{"question":"a {b} \"c\""}]} trailing }`))

	truncated := `{"questions":[{"question":"Q?","answer":"a"},`
	assert.Equal(t, `{"questions":[{"question":"Q?","answer":"a"}]}`, extractJSONFromText(truncated))

	assert.Equal(t, "", extractJSONFromText(`{"questions":[{"question":"cut off mid`))
	assert.Equal(t, "", extractJSONFromText("no json here"))
}

func TestGenerateRetriesUntilValid(t *testing.T) {
	fb := &fakeBackend{
		errs: []error{errors.New("503 unavailable")},
		responses: []string{
			"",
			quizJSON(questionJSON("Only one?", "a")),
			quizJSON(questionJSON("First?", "a"), questionJSON("Second?", "d")),
		},
	}
	c := newTestClient(fb)

	bank, err := c.Generate(context.Background(), "biology", 2, []string{"Cells divide.", "  ", "DNA replicates."})
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.Equal(t, "d", bank[1].Answer)
	require.Len(t, fb.prompts, 3)

	prompt := fb.prompts[0]
	assert.Contains(t, prompt, `"biology"`)
	assert.Contains(t, prompt, "Write exactly 2 questions")
	assert.Contains(t, prompt, "[1] Cells divide.")
	assert.Contains(t, prompt, "[2] DNA replicates.")
}

func TestGenerateFailsAfterThreeAttempts(t *testing.T) {
	fb := &fakeBackend{responses: []string{"nope", "nope", "nope", quizJSON(questionJSON("Late?", "a"))}}
	c := newTestClient(fb)

	_, err := c.Generate(context.Background(), "history", 1, nil)
	var genErr *models.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "history", genErr.Topic)
	assert.Len(t, fb.prompts, 3)
	assert.Contains(t, fb.prompts[0], "no context passages were found")
}

func TestGenerateValidatesArguments(t *testing.T) {
	c := newTestClient(&fakeBackend{})
	var genErr *models.GenerationError

	_, err := c.Generate(context.Background(), "   ", 3, nil)
	assert.ErrorAs(t, err, &genErr)

	_, err = c.Generate(context.Background(), "math", 0, nil)
	assert.ErrorAs(t, err, &genErr)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	fb := &fakeBackend{errs: []error{errors.New("boom")}}
	c := newTestClient(fb)
	c.retryDelay = 1 << 40

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, "math", 1, nil)
	var genErr *models.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fb.prompts, 1)
}
