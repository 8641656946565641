// Command lambda serves the graph API behind an API Gateway HTTP API.
package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vaultgraph/infrastructure/config"
	"vaultgraph/infrastructure/di"
)

// app is built once per execution environment. The environment is frozen
// between invocations, so neither the watcher nor the cache sweeper runs.
type app struct {
	adapter *chiadapter.ChiLambdaV2
	logger  *zap.Logger
	warm    bool
}

func newApp(ctx context.Context) (*app, error) {
	began := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mux, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("router did not return a *chi.Mux")
	}

	container.Logger.Info("Execution environment ready",
		zap.Duration("init", time.Since(began)),
		zap.String("vault", container.Graphs.CurrentVault()),
	)
	return &app{adapter: chiadapter.NewV2(mux), logger: container.Logger}, nil
}

func (a *app) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := a.adapter.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["X-Cold-Start"] = strconv.FormatBool(!a.warm)
	a.warm = true

	rc := req.RequestContext
	if rc.RequestID != "" {
		resp.Headers["X-Request-ID"] = rc.RequestID
	}

	fields := []zap.Field{
		zap.String("method", rc.HTTP.Method),
		zap.String("path", rc.HTTP.Path),
		zap.String("request_id", rc.RequestID),
		zap.Int("status", resp.StatusCode),
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		a.logger.Error("Invocation failed", append(fields, zap.String("body", resp.Body))...)
	} else {
		a.logger.Info("Invocation served", fields...)
	}
	return resp, err
}

func main() {
	a, err := newApp(context.Background())
	if err != nil {
		log.Fatalf("lambda init: %v", err)
	}
	lambda.Start(a.handle)
}
