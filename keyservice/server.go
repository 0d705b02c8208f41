package keyservice

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// authorizationKey carries "Basic base64(user:password)".
const authorizationKey = "authorization"

// Server exposes a Service over the Key gRPC service.
type Server struct {
	UnimplementedKeyServer
	Service Service
	Logger  *zap.Logger
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key service")
	}
	pub, err := s.Service.Fetch(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(pub), nil
}

func (s *Server) Upload(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key service")
	}
	creds, err := credentialsFrom(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	f := in.GetFields()
	id := f["identifier"].GetStringValue()
	if err := s.Service.Upload(ctx, f["public_key"].GetStringValue(), id, creds); err != nil {
		return nil, mapErr(err)
	}
	s.logger().Info("key uploaded", zap.String("identifier", id), zap.String("user", creds.User))
	return &emptypb.Empty{}, nil
}

func (s *Server) Revoke(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key service")
	}
	creds, err := credentialsFrom(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Service.Revoke(ctx, in.GetValue(), creds); err != nil {
		return nil, mapErr(err)
	}
	s.logger().Info("key revoked", zap.String("identifier", in.GetValue()), zap.String("user", creds.User))
	return &emptypb.Empty{}, nil
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func credentialsFrom(ctx context.Context) (Credentials, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Credentials{}, ErrUnauthorized
	}
	vals := md.Get(authorizationKey)
	if len(vals) == 0 {
		return Credentials{}, ErrUnauthorized
	}
	enc, ok := strings.CutPrefix(vals[0], "Basic ")
	if !ok {
		return Credentials{}, ErrUnauthorized
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return Credentials{}, ErrUnauthorized
	}
	user, pw, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credentials{}, ErrUnauthorized
	}
	return Credentials{User: user, Password: pw}, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
