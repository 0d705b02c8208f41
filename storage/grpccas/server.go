package grpccas

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/graphwire/storage"
)

// Server exposes a storage.CAS as the Archive gRPC service.
type Server struct {
	UnimplementedArchiveServer
	CAS    storage.CAS
	Logger *zap.Logger
}

func (s *Server) Store(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	cas, err := s.backing()
	if err != nil {
		return nil, err
	}
	fields := in.GetFields()
	id, err := decodeHash(fields["hash"].GetStringValue())
	if err != nil {
		return nil, err
	}
	payload, err := base64.StdEncoding.DecodeString(fields["payload"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "payload is not base64")
	}
	if err := cas.Put(id, payload); err != nil {
		return nil, mapErr(err)
	}
	s.log().Debug("payload archived", zap.String("hash", id.String()), zap.Int("bytes", len(payload)))
	return &emptypb.Empty{}, nil
}

func (s *Server) Fetch(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	cas, err := s.backing()
	if err != nil {
		return nil, err
	}
	id, err := decodeHash(in.GetValue())
	if err != nil {
		return nil, err
	}
	b, err := cas.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Contains(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	cas, err := s.backing()
	if err != nil {
		return nil, err
	}
	id, err := decodeHash(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(cas.Has(id)), nil
}

func (s *Server) backing() (storage.CAS, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing archive")
	}
	return s.CAS, nil
}

func (s *Server) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func decodeHash(hash string) (cid.Cid, error) {
	id, err := storage.Key(hash)
	if err != nil {
		return cid.Undef, status.Error(codes.InvalidArgument, err.Error())
	}
	return id, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, storage.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
