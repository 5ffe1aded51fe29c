package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"miseagent"
	"miseagent/app"
	"miseagent/coordinator"
)

type Params struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type Results struct {
	Reply    string `json:"reply"`
	Thoughts any    `json:"thought_steps,omitempty"`
}

func handler(chat *coordinator.Chat) func(ctx context.Context, params Params) (Results, error) {
	return func(ctx context.Context, params Params) (Results, error) {
		if params.UserID == "" {
			return Results{}, errors.New("user_id is required")
		}
		reply, err := chat.Send(ctx, params.UserID, params.Message)
		if err != nil {
			slog.Error("CHAT: Turn failed", "user_id", params.UserID, "error", err)
			return Results{}, err
		}
		return Results{Reply: reply.Message.Content, Thoughts: reply.ThoughtSteps}, nil
	}
}

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to decode config: %s", err)
	}

	var opts app.Options
	if cfg.Agent.LogBucket == "" {
		opts.Logger = miseagent.NewStdoutCoordinationLogger()
	}

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		log.Fatalf("Failed to set up: %s", err)
	}
	defer a.Close()

	lambda.Start(handler(a.Chat))
}
