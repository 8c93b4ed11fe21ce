package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"jobapply-backend/internal/bootstrap"
	"jobapply-backend/internal/shared/config"
	"jobapply-backend/internal/shared/telemetry"
)

// Only /tmp is writable inside the Lambda sandbox.
const lambdaScratchDir = "/tmp/jobapply"

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := lambdaConfig(config.Load())
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
}

// lambdaConfig moves file-backed state under the scratch dir. Sessions kept in
// memory do not survive cold starts, so REDIS_URL should be set.
func lambdaConfig(cfg config.Config) config.Config {
	if cfg.ObjectStoreType != "s3" {
		cfg.LocalStoreDir = filepath.Join(lambdaScratchDir, "uploads")
	}
	if !strings.HasPrefix(cfg.GmailTokenDir, "/tmp/") {
		cfg.GmailTokenDir = filepath.Join(lambdaScratchDir, "tokens")
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		telemetry.Warn("lambda.memory_sessions", map[string]any{"reason": "REDIS_URL empty; sessions are lost on cold start"})
	}
	return cfg
}

func errorResponse(status int, code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return errorResponse(http.StatusInternalServerError, "bootstrap_failed", "service unavailable"), initErr
	}
	if ginLambda == nil {
		return errorResponse(http.StatusInternalServerError, "internal_error", "router not initialized"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	defer telemetry.Sync()
	lambda.Start(handler)
}
