package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/resume-coach/internal/workflow"
)

const (
	OpScore     = "score resume"
	OpQuestions = "fetch practice questions"
	OpEvaluate  = "evaluate answer"
)

// maxEmbedDepth bounds how many times a JSON document wrapped in a JSON string is unwrapped.
const maxEmbedDepth = 2

// textItem covers the keys the backend and the LLM prompts use for list entries.
type textItem struct {
	Text     string `mapstructure:"text"`
	Q        string `mapstructure:"q"`
	Question string `mapstructure:"question"`
	A        string `mapstructure:"a"`
	Feedback string `mapstructure:"feedback"`
	Reason   string `mapstructure:"reason"`
}

func (t textItem) value() string {
	for _, v := range []string{t.Text, t.Q, t.Question, t.A, t.Feedback, t.Reason} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ParseScore decodes a scoring response: {"scoreData": {...}, "reasons": [...]} or {"error": "..."}.
func ParseScore(data []byte) (*workflow.Assessment, error) {
	var envelope struct {
		ScoreData json.RawMessage `json:"scoreData"`
		Reasons   json.RawMessage `json:"reasons"`
		Error     json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}

	if msg, ok := errorMessage(envelope.Error); ok {
		return nil, &workflow.ServiceError{Op: OpScore, Message: msg}
	}

	scoreData, err := unwrapEmbedded(envelope.ScoreData)
	if err != nil {
		return nil, fmt.Errorf("decode scoreData: %w", err)
	}
	if isNull(scoreData) {
		return nil, errors.New("score response has no scoreData")
	}

	report, err := parseReport(scoreData)
	if err != nil {
		return nil, err
	}

	reasons, err := parseReasons(envelope.Reasons)
	if err != nil {
		return nil, err
	}

	return &workflow.Assessment{Report: report, Reasons: reasons}, nil
}

// ParseQuestions decodes {"questions": [...]}; a bare list is accepted too.
func ParseQuestions(data []byte) (workflow.QuestionSet, error) {
	items, err := listPayload(data, "questions", OpQuestions)
	if err != nil {
		return nil, err
	}

	texts, err := decodeTexts(items)
	if err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	questions := make(workflow.QuestionSet, 0, len(texts))
	for _, text := range texts {
		questions = append(questions, workflow.Question{Text: text})
	}

	return questions, nil
}

// ParseFeedback decodes {"response": [...]}; a bare list is accepted too.
func ParseFeedback(data []byte) ([]workflow.Feedback, error) {
	items, err := listPayload(data, "response", OpEvaluate)
	if err != nil {
		return nil, err
	}

	texts, err := decodeTexts(items)
	if err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}

	feedback := make([]workflow.Feedback, 0, len(texts))
	for _, text := range texts {
		feedback = append(feedback, workflow.Feedback{Text: text})
	}

	return feedback, nil
}

// WrapServiceError turns a malformed or failed response into a ServiceError.
func WrapServiceError(op string, status int, err error) error {
	if err == nil {
		return nil
	}

	var se *workflow.ServiceError
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		return se
	}

	return &workflow.ServiceError{Op: op, Status: status, Err: err}
}

func listPayload(data []byte, key, op string) ([]any, error) {
	var payload any
	if err := json.Unmarshal([]byte(ExtractJSON(string(data))), &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}

	return itemsFrom(payload, key, op, 0)
}

func itemsFrom(v any, key, op string, depth int) ([]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return val, nil
	case map[string]any:
		if raw, ok := val["error"]; ok && raw != nil {
			return nil, &workflow.ServiceError{Op: op, Message: coerceString(raw)}
		}
		return itemsFrom(val[key], key, op, depth)
	case string:
		if depth >= maxEmbedDepth {
			return nil, fmt.Errorf("%s: unexpected string payload", key)
		}
		var inner any
		if err := json.Unmarshal([]byte(ExtractJSON(val)), &inner); err != nil {
			return nil, fmt.Errorf("%s: decode embedded json: %w", key, err)
		}
		return itemsFrom(inner, key, op, depth+1)
	default:
		return nil, fmt.Errorf("%s: unexpected payload type %T", key, v)
	}
}

func decodeTexts(items []any) ([]string, error) {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(val); s != "" {
				texts = append(texts, s)
			}
		case map[string]any:
			var decoded textItem
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				WeaklyTypedInput: true,
				Result:           &decoded,
			})
			if err != nil {
				return nil, err
			}
			if err := decoder.Decode(val); err != nil {
				return nil, err
			}
			if s := decoded.value(); s != "" {
				texts = append(texts, s)
			}
		default:
			texts = append(texts, coerceString(val))
		}
	}

	return texts, nil
}

func parseReport(raw json.RawMessage) (workflow.ScoreReport, error) {
	var fields struct {
		Total     json.RawMessage `json:"total"`
		Score     json.RawMessage `json:"score"`
		Breakdown json.RawMessage `json:"breakdown"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return workflow.ScoreReport{}, fmt.Errorf("decode scoreData: %w", err)
	}

	totalRaw := fields.Total
	if isNull(totalRaw) {
		totalRaw = fields.Score
	}
	if isNull(totalRaw) {
		return workflow.ScoreReport{}, errors.New("scoreData has no total")
	}

	var totalValue any
	if err := json.Unmarshal(totalRaw, &totalValue); err != nil {
		return workflow.ScoreReport{}, fmt.Errorf("decode total: %w", err)
	}
	total, err := coerceInt(totalValue)
	if err != nil {
		return workflow.ScoreReport{}, fmt.Errorf("total: %w", err)
	}

	breakdown, err := orderedCategories(fields.Breakdown)
	if err != nil {
		return workflow.ScoreReport{}, err
	}

	return workflow.ScoreReport{Total: total, Breakdown: breakdown}, nil
}

// orderedCategories walks the breakdown object token by token so the
// service's category order survives decoding.
func orderedCategories(raw json.RawMessage) ([]workflow.Category, error) {
	categories := make([]workflow.Category, 0)
	if isNull(raw) {
		return categories, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("breakdown must be an object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode breakdown key: %w", err)
		}
		name, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode breakdown %q: %w", name, err)
		}

		n, err := coerceInt(value)
		if err != nil {
			return nil, fmt.Errorf("breakdown %q: %w", name, err)
		}

		categories = append(categories, workflow.Category{Name: name, Value: n})
	}

	return categories, nil
}

func parseReasons(raw json.RawMessage) (workflow.ReasonList, error) {
	reasons := workflow.ReasonList{Items: []string{}, Received: true}
	if isNull(raw) {
		return reasons, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return reasons, fmt.Errorf("decode reasons: %w", err)
	}

	switch val := value.(type) {
	case string:
		reasons.Items = splitLines(val)
	case []any:
		texts, err := decodeTexts(val)
		if err != nil {
			return reasons, fmt.Errorf("decode reasons: %w", err)
		}
		reasons.Items = texts
	case map[string]any:
		var decoded struct {
			Review string `mapstructure:"review"`
		}
		if err := mapstructure.WeakDecode(val, &decoded); err != nil {
			return reasons, fmt.Errorf("decode reasons: %w", err)
		}
		reasons.Items = splitLines(decoded.Review)
	default:
		return reasons, fmt.Errorf("reasons: unexpected type %T", value)
	}

	return reasons, nil
}

func splitLines(s string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func errorMessage(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return strings.TrimSpace(string(raw)), true
	}

	msg := coerceString(value)
	if msg == "" {
		msg = "unknown service error"
	}
	return msg, true
}

// unwrapEmbedded returns raw as is, or the JSON document inside it when raw is a JSON string.
func unwrapEmbedded(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}

	return json.RawMessage(ExtractJSON(s)), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ExtractJSON strips markdown fences and any chatter around the outermost JSON value.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	if raw == "" || raw[0] == '{' || raw[0] == '[' || raw[0] == '"' {
		return raw
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return raw
	}
	closing := "}"
	if raw[start] == '[' {
		closing = "]"
	}
	end := strings.LastIndex(raw, closing)
	if end < start {
		return raw
	}

	return raw[start : end+1]
}

func coerceInt(v any) (int, error) {
	switch val := v.(type) {
	case float64:
		return int(math.Round(val)), nil
	case int:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, err
		}
		return int(math.Round(f)), nil
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		return int(math.Round(f)), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
