package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sre-norns/ags/pkg/resource"
)

// operationURL resolves URL of an operation or a child resource of the service
func operationURL(s Service, name string) string {
	return strings.TrimRight(s.URL(), "/") + "/" + name
}

// postOperation invokes an operation of the service expecting a JSON object in return
func postOperation(ctx context.Context, s Service, operation string, params map[string]any) (map[string]any, error) {
	conn := s.Connection()
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	target := operationURL(s, operation)
	value, err := conn.Post(ctx, target, params)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}

	payload, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q returned %T", resource.ErrRemoteResponse, target, value)
	}

	return payload, nil
}

// subLayers creates services for numbered layers of the parent service
func subLayers(ctx context.Context, parent Service, layers []LayerInfo) ([]Service, error) {
	result := make([]Service, 0, len(layers))
	for _, layer := range layers {
		s, err := Create(ctx, operationURL(parent, strconv.Itoa(layer.ID)), WithConnection(parent.Connection()))
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, nil
}
