package notary

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server exposes a Store over the Notary gRPC service.
type Server struct {
	UnimplementedNotaryServer
	Store  Store
	Logger *zap.Logger
}

func (s *Server) Deposit(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing notary store")
	}
	d, err := depositFromStruct(in)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Deposit(ctx, d); err != nil {
		return nil, mapErr(err)
	}
	s.logger().Debug("deposit stored", zap.String("sender", d.Sender), zap.String("identifier", d.Identifier))
	return &emptypb.Empty{}, nil
}

func (s *Server) Fetch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing notary store")
	}
	d, err := s.Store.Fetch(ctx, str(in, "sender"), str(in, "identifier"))
	if err != nil {
		return nil, mapErr(err)
	}
	return depositToStruct(d), nil
}

func (s *Server) Revoke(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing notary store")
	}
	sender, identifier := str(in, "sender"), str(in, "identifier")
	if err := s.Store.Revoke(ctx, sender, identifier); err != nil {
		return nil, mapErr(err)
	}
	s.logger().Info("deposit revoked", zap.String("sender", sender), zap.String("identifier", identifier))
	return &emptypb.Empty{}, nil
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
