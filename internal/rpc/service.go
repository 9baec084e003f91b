// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package rpc carries gateway operations over gRPC. The service
// recordgate.v1.RecordGateway has one unary method per operation; requests
// and responses are google.protobuf.Struct messages holding the same JSON
// shapes the batch package produces:
//
//	Delete  {recordIds, allOrNone}                          -> {outcomes}
//	Update  {records, allOrNone}                            -> {outcomes}
//	Insert  {recordInputs, allOrNone}                       -> {outcomes}
//	Upsert  {records, apiName, externalId, allOrNone}       -> {outcomes}
//	Get     {fields, querySelect, apiName, whereClause,
//	         orderBy, queryLimit}                           -> {rows}
//
// Server exposes a gateway.Client; Client implements gateway.Invoker, so a
// local gateway can run against a remote record store.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "recordgate.v1.RecordGateway"

// Full method names.
const (
	MethodDelete = "/" + serviceName + "/Delete"
	MethodUpdate = "/" + serviceName + "/Update"
	MethodInsert = "/" + serviceName + "/Insert"
	MethodUpsert = "/" + serviceName + "/Upsert"
	MethodGet    = "/" + serviceName + "/Get"
)

// Response payload keys.
const (
	keyOutcomes = "outcomes"
	keyRows     = "rows"
)

// RecordGatewayServer is the server API of the RecordGateway service.
type RecordGatewayServer interface {
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Insert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upsert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RecordGatewayServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordGatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordGatewayServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes the RecordGateway service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RecordGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Delete", Handler: unaryHandler(MethodDelete, RecordGatewayServer.Delete)},
		{MethodName: "Update", Handler: unaryHandler(MethodUpdate, RecordGatewayServer.Update)},
		{MethodName: "Insert", Handler: unaryHandler(MethodInsert, RecordGatewayServer.Insert)},
		{MethodName: "Upsert", Handler: unaryHandler(MethodUpsert, RecordGatewayServer.Upsert)},
		{MethodName: "Get", Handler: unaryHandler(MethodGet, RecordGatewayServer.Get)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recordgate/v1/gateway.proto",
}

// toStruct converts a JSON-shaped value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromValue decodes a Struct field value into dst through JSON.
func fromValue(v *structpb.Value, dst any) error {
	raw, err := protojson.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// fromStruct decodes a Struct into dst through JSON.
func fromStruct(s *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
