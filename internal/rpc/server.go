// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/logging"
	"recordgate/cli/internal/records"
)

// Request shapes as they arrive on the wire. allOrNone and externalId are
// optional here; the batch builders apply their defaults.
type (
	deleteRequest struct {
		RecordIDs []records.Reference `json:"recordIds"`
		AllOrNone *bool               `json:"allOrNone"`
	}
	updateRequest struct {
		Records   []records.Record `json:"records"`
		AllOrNone *bool            `json:"allOrNone"`
	}
	insertRequest struct {
		RecordInputs []records.Descriptor `json:"recordInputs"`
		AllOrNone    *bool                `json:"allOrNone"`
	}
	upsertRequest struct {
		Records    []records.Record `json:"records"`
		APIName    string           `json:"apiName"`
		ExternalID string           `json:"externalId"`
		AllOrNone  *bool            `json:"allOrNone"`
	}
	getRequest struct {
		Fields      []string `json:"fields"`
		QuerySelect string   `json:"querySelect"`
		APIName     string   `json:"apiName"`
		WhereClause string   `json:"whereClause"`
		OrderBy     string   `json:"orderBy"`
		QueryLimit  *int     `json:"queryLimit"`
	}
)

// Server serves a gateway.Client over gRPC. Requests are validated by the
// gateway again, so remote callers get the same defaults and errors as local
// ones.
type Server struct {
	gw    *gateway.Client
	token string
	log   logrus.FieldLogger
}

var _ RecordGatewayServer = (*Server)(nil)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithToken requires every call to carry "authorization: Bearer <token>".
func WithToken(token string) ServerOption {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// WithServerLogger sets the logger for request logs.
func WithServerLogger(l logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a Server backed by gw.
func NewServer(gw *gateway.Client, opts ...ServerOption) *Server {
	s := &Server{gw: gw, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// UnaryInterceptors returns the interceptors the server expects to run with:
// token check, then request logging.
func (s *Server) UnaryInterceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{s.authorize, s.logRequest}
}

// NewGRPCServer returns a grpc.Server with the interceptors installed and
// the service registered.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.UnaryInterceptors()...))
	g := grpc.NewServer(opts...)
	s.Register(g)
	return g
}

func (s *Server) authorize(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.token == "" {
		return handler(ctx, req)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	want := "Bearer " + s.token
	for _, got := range md.Get("authorization") {
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
			return handler(ctx, req)
		}
	}
	return nil, status.Error(codes.Unauthenticated, "missing or invalid bearer token")
}

func (s *Server) logRequest(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	entry := s.log.WithFields(logrus.Fields{
		"method":   info.FullMethod,
		"code":     status.Code(err).String(),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("request failed")
	} else {
		entry.Debug("request served")
	}
	return resp, err
}

// Delete implements RecordGatewayServer.
func (s *Server) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req deleteRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, badRequest(err)
	}
	out, err := s.gw.Delete(ctx, batch.DeleteOptions{RecordIDs: req.RecordIDs, AllOrNone: req.AllOrNone})
	return reply(keyOutcomes, out, err)
}

// Update implements RecordGatewayServer.
func (s *Server) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, badRequest(err)
	}
	out, err := s.gw.Update(ctx, batch.UpdateOptions{Records: req.Records, AllOrNone: req.AllOrNone})
	return reply(keyOutcomes, out, err)
}

// Insert implements RecordGatewayServer.
func (s *Server) Insert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req insertRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, badRequest(err)
	}
	out, err := s.gw.Insert(ctx, batch.InsertOptions{RecordInputs: req.RecordInputs, AllOrNone: req.AllOrNone})
	return reply(keyOutcomes, out, err)
}

// Upsert implements RecordGatewayServer.
func (s *Server) Upsert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req upsertRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, badRequest(err)
	}
	out, err := s.gw.Upsert(ctx, batch.UpsertOptions{
		Records:    req.Records,
		APIName:    req.APIName,
		ExternalID: req.ExternalID,
		AllOrNone:  req.AllOrNone,
	})
	return reply(keyOutcomes, out, err)
}

// Get implements RecordGatewayServer.
func (s *Server) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req getRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, badRequest(err)
	}
	rows, err := s.gw.Get(ctx, batch.QueryOptions{
		APIName:     req.APIName,
		Fields:      req.Fields,
		QuerySelect: req.QuerySelect,
		WhereClause: req.WhereClause,
		OrderBy:     req.OrderBy,
		QueryLimit:  req.QueryLimit,
	})
	return reply(keyRows, rows, err)
}

func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, "malformed request: "+err.Error())
}

func reply[T any](key string, items []T, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, statusFor(err)
	}
	out, err := toStruct(map[string]any{key: items})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response: "+err.Error())
	}
	return out, nil
}

// statusFor maps an error kind to a gRPC status. Messages are masked.
func statusFor(err error) error {
	msg := logging.Mask(err.Error())
	switch errors.KindOf(err) {
	case errors.InvalidArgument:
		return status.Error(codes.InvalidArgument, msg)
	case errors.BackendUnavailable:
		return status.Error(codes.Unavailable, msg)
	case errors.BackendRejected:
		return status.Error(codes.FailedPrecondition, msg)
	}
	return status.Error(codes.Internal, msg)
}
