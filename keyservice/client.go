package keyservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client implements Service over a Key gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client KeyClient

	// Timeout applies per RPC when non-zero and the caller set no deadline.
	Timeout time.Duration
}

func NewClient(cc *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{cc: cc, client: NewKeyClient(cc), Timeout: timeout}
}

// Dial connects to a key service at target.
func Dial(target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("keyservice: dial %s: %w", target, err)
	}
	return NewClient(cc, timeout), nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Fetch(ctx context.Context, identifier string) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Fetch(ctx, wrapperspb.String(identifier))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Upload(ctx context.Context, publicKey, identifier string, creds Credentials) error {
	ctx, cancel := c.ctx(withCredentials(ctx, creds))
	defer cancel()
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"identifier": structpb.NewStringValue(identifier),
		"public_key": structpb.NewStringValue(publicKey),
	}}
	_, err := c.client.Upload(ctx, in)
	return mapRPC(err)
}

func (c *Client) Revoke(ctx context.Context, identifier string, creds Credentials) error {
	ctx, cancel := c.ctx(withCredentials(ctx, creds))
	defer cancel()
	_, err := c.client.Revoke(ctx, wrapperspb.String(identifier))
	return mapRPC(err)
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok || c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

func withCredentials(ctx context.Context, creds Credentials) context.Context {
	token := base64.StdEncoding.EncodeToString([]byte(creds.User + ":" + creds.Password))
	return metadata.AppendToOutgoingContext(ctx, authorizationKey, "Basic "+token)
}

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrExists
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalid, st.Message())
	default:
		return err
	}
}
