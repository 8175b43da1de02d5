package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/errs"
	"GoTaskAgent/app/restclient"
	"GoTaskAgent/app/tools"
	"GoTaskAgent/app/utils"
)

const (
	endpoint          = "/v1/chat/completions"
	embeddingEndpoint = "/v1/embeddings"

	defaultMaxRetries = 3
	temperature       = 0.2
)

var _ Interface = &LLMClient{}

type LLMClient struct {
	restClient      restclient.Interface
	model           string
	embeddingsModel string
	maxRetries      int
	cache           sync.Map
}

func NewLLMClient(rest restclient.Interface, cfg configs.LLM) *LLMClient {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &LLMClient{
		restClient:      rest,
		model:           cfg.Model,
		embeddingsModel: cfg.EmbeddingsModel,
		maxRetries:      retries,
	}
}

// Decide sends the conversation plus tool schemas and parses the
// model's answer into a Decision. When the model emits several tool
// calls only the first is honored; a final answer is whatever content
// arrives without tool calls, including content that fails to parse.
func (mc *LLMClient) Decide(ctx context.Context, messages []Message, toolkit []tools.Tool) (*Decision, error) {
	payload := requestPayload{
		Model:       mc.model,
		Tools:       functionsToPayload(toolkit),
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   -1,
	}

	response, err := mc.sendRequestAndParse(ctx, payload)
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errs.New(errs.KindModel, "model returned no choices")
	}

	msg := response.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return &Decision{FinalAnswer: msg.Content}, nil
	}
	if len(msg.ToolCalls) > 1 {
		log.Printf("⚠️ Model returned %d tool calls, executing only the first\n", len(msg.ToolCalls))
	}

	call := msg.ToolCalls[0]
	args, parseErr := utils.ParseArguments(call.Function.Arguments)
	if parseErr != nil {
		log.Printf("⚠️ Unparsable tool arguments for %s: %v\n", call.Function.Name, parseErr)
		answer := msg.Content
		if answer == "" {
			answer = call.Function.Arguments
		}
		return &Decision{FinalAnswer: answer}, nil
	}

	return &Decision{ToolCall: &ToolCall{
		ID:           call.ID,
		Name:         call.Function.Name,
		Arguments:    args,
		RawArguments: call.Function.Arguments,
	}}, nil
}

func functionsToPayload(toolkit []tools.Tool) (payload []functionPayload) {
	for _, t := range toolkit {
		payload = append(payload, functionPayload{Type: "function", Function: t})
	}
	return payload
}

func (mc *LLMClient) sendRequestAndParse(ctx context.Context, payload requestPayload) (*ResponseLLM, error) {
	var err error
	var response []byte
	var status int
	var generatedResponse ResponseLLM

	for i := 0; i < mc.maxRetries; i++ {
		select {
		case <-ctx.Done():
			log.Println("🚨 Request canceled before execution")
			return nil, classifyModelErr(ctx.Err())
		default:
			if err != nil {
				time.Sleep(time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond)
			}
			response, status, err = mc.restClient.Post(ctx, endpoint, payload, nil)
			if err != nil {
				log.Printf("⚠️ Attempt %d failed: HTTP %d | Error: %v\n", i+1, status, err)
				continue
			}
			if status < 200 || status >= 300 {
				err = fmt.Errorf("unexpected status %d: %s", status, string(response))
				log.Printf("⚠️ Attempt %d failed: %v\n", i+1, err)
				continue
			}

			if err = json.Unmarshal(response, &generatedResponse); err != nil {
				log.Printf("⚠️ Error parsing response: %v\n", err)
				continue
			}

			return &generatedResponse, nil
		}
	}

	return nil, classifyModelErr(fmt.Errorf("request failed after %d retries: %w", mc.maxRetries, err))
}

func classifyModelErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, err, "model request timed out")
	}
	return errs.Wrap(errs.KindModel, err, "model request failed")
}
