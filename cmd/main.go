package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"ultrawealth-client/handler"
	"ultrawealth-client/internal/integrations/paramstore"
	"ultrawealth-client/internal/integrations/turingos"
	"ultrawealth-client/internal/repository"
	"ultrawealth-client/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	dualControlTable := mustEnv("DUAL_CONTROL_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	baseURL := os.Getenv("TURINGOS_BASE_URL") // optional; local default applies

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)
	approvalStore, err := repository.New(dynamoClient, dualControlTable)
	if err != nil {
		slog.Error("failed to create approval store", "err", err)
		os.Exit(1)
	}

	var opts []turingos.Option
	if baseURL != "" {
		opts = append(opts, turingos.WithBaseURL(baseURL))
	}
	decisionClient, err := turingos.NewClient(ssmClient, paramPrefix, opts...)
	if err != nil {
		slog.Error("failed to create TuringOS client", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	interactions, err := usecase.NewInteractionService(decisionClient)
	if err != nil {
		slog.Error("failed to create interaction service", "err", err)
		os.Exit(1)
	}
	approvals, err := usecase.NewDualControlService(approvalStore)
	if err != nil {
		slog.Error("failed to create dual-control service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(interactions, approvals)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
