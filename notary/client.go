package notary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"xdao.co/graphwire/reference"
)

// Client implements Store over a Notary gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client NotaryClient

	// Timeout applies per RPC when non-zero and the caller set no deadline.
	Timeout time.Duration
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{cc: cc, client: NewNotaryClient(cc), Timeout: timeout}
}

// Dial connects to a notary at target. The connection is lazy; the first
// RPC surfaces an unreachable server.
func Dial(target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("notary: dial %s: %w", target, err)
	}
	return NewClient(cc, timeout), nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Deposit(ctx context.Context, d reference.Deposit) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.Deposit(ctx, depositToStruct(d))
	return mapRPC(err)
}

func (c *Client) Fetch(ctx context.Context, sender, identifier string) (reference.Deposit, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Fetch(ctx, keyStruct(sender, identifier))
	if err != nil {
		return reference.Deposit{}, mapRPC(err)
	}
	return depositFromStruct(reply)
}

func (c *Client) Revoke(ctx context.Context, sender, identifier string) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.Revoke(ctx, keyStruct(sender, identifier))
	return mapRPC(err)
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok || c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
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
		if st.Message() == ErrExpired.Error() {
			return ErrExpired
		}
		return ErrNotFound
	case codes.InvalidArgument:
		msg, ok := strings.CutPrefix(st.Message(), ErrInvalid.Error()+": ")
		if !ok {
			return ErrInvalid
		}
		return fmt.Errorf("%w: %s", ErrInvalid, msg)
	default:
		return err
	}
}
