package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"calc-assistant/internal/credential"
	"calc-assistant/internal/llm"
	"calc-assistant/internal/service"
)

// Instructions is sent ahead of the user's text on every remote call.
const Instructions = `You are an AWS architecture assistant. Read the user's description of the AWS services they need and answer with one JSON object and nothing else.

Supported service types: ec2, rds, s3, lambda, dynamodb.

Return exactly this shape:
{
  "services": [
    {"type": "ec2", "params": {"count": 1, "instanceType": "t3.micro"}},
    {"type": "rds", "params": {"engine": "mysql", "storage": 100, "instanceType": "db.t3.medium", "count": 1}},
    {"type": "s3", "params": {"storage": 100, "storageClass": "Standard", "requests": 10000}},
    {"type": "lambda", "params": {"memory": 128, "requests": 1000000, "duration": 100}},
    {"type": "dynamodb", "params": {"storage": 10, "readCapacity": 5, "writeCapacity": 5}}
  ],
  "region": "ap-northeast-1",
  "optimizations": ["cost optimization advice"]
}

Only include the services the user asked for. engine is one of mysql, postgresql, aurora. region is one of ap-northeast-1, us-east-1, eu-west-1, ap-southeast-1. storage is in GB, memory in MB, duration in milliseconds.`

// RemoteTier asks a completion service to structure text the local patterns
// could not.
type RemoteTier struct {
	creds     credential.Store
	completer llm.Completer
	logger    *zap.Logger
}

func NewRemoteTier(creds credential.Store, completer llm.Completer, logger *zap.Logger) *RemoteTier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteTier{creds: creds, completer: completer, logger: logger.Named("remote")}
}

// Parse calls the completion service once. A request with zero usable
// services is returned as is; the caller decides what that means.
func (r *RemoteTier) Parse(ctx context.Context, text string) (service.ParsedRequest, error) {
	key, err := r.creds.Get(ctx)
	if err != nil {
		return service.ParsedRequest{}, fmt.Errorf("%w: read credential: %v", ErrMissingCredential, err)
	}
	if strings.TrimSpace(key) == "" {
		return service.ParsedRequest{}, ErrMissingCredential
	}

	raw, err := r.completer.Complete(ctx, llm.Request{
		APIKey:       key,
		Instructions: Instructions,
		UserText:     text,
	})
	if err != nil {
		return service.ParsedRequest{}, remoteFailure(err)
	}
	r.logger.Debug("remote completion received", zap.Int("bytes", len(raw)))

	obj, ok := extractObject(raw)
	if !ok {
		return service.ParsedRequest{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedRemoteResponse)
	}
	return r.decode(obj)
}

func remoteFailure(err error) error {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrRemoteRequestFailed, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrRemoteRequestFailed, err)
}

type remotePayload struct {
	Services      json.RawMessage `json:"services"`
	Region        string          `json:"region"`
	Optimizations []any           `json:"optimizations"`
}

func (r *RemoteTier) decode(obj string) (service.ParsedRequest, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.UseNumber()
	var payload remotePayload
	if err := dec.Decode(&payload); err != nil {
		return service.ParsedRequest{}, fmt.Errorf("%w: %v", ErrMalformedRemoteResponse, err)
	}

	var entries []map[string]any
	if len(payload.Services) > 0 && string(payload.Services) != "null" {
		sd := json.NewDecoder(bytes.NewReader(payload.Services))
		sd.UseNumber()
		if err := sd.Decode(&entries); err != nil {
			return service.ParsedRequest{}, fmt.Errorf("%w: services: %v", ErrMalformedRemoteResponse, err)
		}
	}

	req := service.ParsedRequest{
		Region:        service.DefaultRegion,
		Optimizations: []string{},
		Provenance:    service.ProvenanceRemote,
	}
	if region, ok := service.ParseRegion(strings.TrimSpace(payload.Region)); ok {
		req.Region = region
	}
	for _, o := range payload.Optimizations {
		if s, ok := o.(string); ok && strings.TrimSpace(s) != "" {
			req.Optimizations = append(req.Optimizations, s)
		}
	}

	for _, entry := range entries {
		typ, _ := entry["type"].(string)
		kind, ok := service.ParseKind(typ)
		if !ok {
			r.logger.Warn("dropping unsupported service type", zap.String("type", typ))
			continue
		}
		params, ok := entry["params"].(map[string]any)
		if !ok {
			params = entry
		}
		req.Services = append(req.Services, specFromParams(kind, params))
	}
	return req, nil
}

func specFromParams(kind service.Kind, p map[string]any) service.Spec {
	switch kind {
	case service.KindEC2:
		return service.NewEC2(intParam(p, "count"), stringParam(p, "instanceType"))
	case service.KindRDS:
		engine, _ := service.ParseEngine(stringParam(p, "engine"))
		return service.NewRDS(intParam(p, "count"), intParam(p, "storage"), engine, stringParam(p, "instanceType"))
	case service.KindS3:
		return service.NewS3(intParam(p, "storage"), stringParam(p, "storageClass"), intParam(p, "requests"))
	case service.KindLambda:
		return service.NewLambda(intParam(p, "memory"), intParam(p, "requests"), intParam(p, "duration"))
	default:
		return service.NewDynamoDB(intParam(p, "storage"), intParam(p, "readCapacity"), intParam(p, "writeCapacity"))
	}
}

// intParam accepts JSON numbers and numeric strings. Anything else is 0.
func intParam(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func stringParam(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}
