package service

import (
	"context"
	"time"
)

// ClientInfo describes the origin of a request for the audit log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type clientInfoKey struct{}

func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func clientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// Все отметки времени хранятся в UTC
func now() time.Time {
	return time.Now().UTC()
}
