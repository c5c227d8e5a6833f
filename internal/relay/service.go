package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"expenserelay/internal/callable"
	"expenserelay/internal/upstream/vertex"
)

const responseMIMEType = "application/json"

type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type ContentGenerator interface {
	GenerateContent(ctx context.Context, token string, req vertex.GenerateContentRequest) (json.RawMessage, error)
}

type Request struct {
	Transcript string `json:"transcript" validate:"notblank"`
}

type Service struct {
	tokens    TokenProvider
	generator ContentGenerator
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic("relay: register notblank validation: " + err.Error())
		}
	})
	return validate
}

func New(tokens TokenProvider, generator ContentGenerator) *Service {
	return &Service{tokens: tokens, generator: generator}
}

// Handle forwards the transcript to the model and returns the upstream
// response body unchanged. Input is validated before any network call.
func (s *Service) Handle(ctx context.Context, in Request) (json.RawMessage, error) {
	if err := getValidator().Struct(in); err != nil {
		return nil, callable.InvalidArgument("Transcript is required")
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, callable.Internal("failed to obtain access token", err)
	}

	raw, err := s.generator.GenerateContent(ctx, token, BuildPayload(in.Transcript))
	if err != nil {
		var upErr *vertex.Error
		if errors.As(err, &upErr) {
			return nil, callable.Internal(upErr.Error(), err)
		}
		return nil, callable.Internal("Vertex AI request failed", err)
	}
	return raw, nil
}

// BuildPayload wraps the transcript in a single user turn with deterministic,
// JSON-only generation settings.
func BuildPayload(transcript string) vertex.GenerateContentRequest {
	return vertex.GenerateContentRequest{
		Contents: []vertex.Content{
			{Role: "user", Parts: []vertex.Part{{Text: transcript}}},
		},
		GenerationConfig: vertex.GenerationConfig{
			Temperature:      0.0,
			ResponseMIMEType: responseMIMEType,
		},
	}
}
