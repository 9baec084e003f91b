package rpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/engine"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/logging"
	"recordgate/cli/internal/records"
)

// stubInvoker answers deletes with one success per reference, or with err.
type stubInvoker struct {
	err        error
	lastDelete batch.DeleteBatch
}

func (s *stubInvoker) DeleteRecords(_ context.Context, b batch.DeleteBatch) ([]records.Outcome, error) {
	s.lastDelete = b
	if s.err != nil {
		return nil, s.err
	}
	out := make([]records.Outcome, len(b.RecordIDs))
	for i, id := range b.RecordIDs {
		out[i] = records.Succeeded(id)
	}
	return out, nil
}

func (s *stubInvoker) UpdateRecords(context.Context, batch.UpdateBatch) ([]records.Outcome, error) {
	return nil, s.err
}

func (s *stubInvoker) InsertRecords(context.Context, batch.InsertBatch) ([]records.Outcome, error) {
	return nil, s.err
}

func (s *stubInvoker) UpsertRecords(context.Context, batch.UpsertBatch) ([]records.Outcome, error) {
	return nil, s.err
}

func (s *stubInvoker) GetRecords(context.Context, batch.QuerySpec) ([]records.Row, error) {
	return nil, s.err
}

// serve starts a Server for inv on an in-memory listener and returns a
// connection to it.
func serve(t *testing.T, inv gateway.Invoker, opts ...ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	opts = append(opts, WithServerLogger(logging.Discard()))
	srv := NewServer(gateway.New(inv, gateway.WithLogger(logging.Discard())), opts...)
	g := srv.NewGRPCServer()
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRemoteGatewayOverEngine(t *testing.T) {
	ctx := context.Background()
	e, err := engine.Open(ctx, "sqlite::memory:", engine.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	require.NoError(t, e.DefineObject(ctx, engine.ObjectType{
		Name:   "Account",
		Fields: []engine.Field{{Name: "Name", Type: engine.TypeText}, {Name: "Employees", Type: engine.TypeInteger}},
	}))

	remote := gateway.New(NewClient(serve(t, e), ""), gateway.WithLogger(logging.Discard()))

	out, err := remote.Insert(ctx, batch.InsertOptions{
		RecordInputs: []records.Descriptor{
			{ObjectType: "Account", Fields: records.Fields{"Name": "Acme", "Employees": 10}},
			{ObjectType: "Account", Fields: records.Fields{"Bogus": 1}},
			{ObjectType: "Account", Fields: records.Fields{"Name": "Globex"}},
		},
		AllOrNone: batch.Bool(false),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Success)
	assert.False(t, out[1].Success)
	assert.Contains(t, out[1].Reason, "INVALID_FIELD")
	assert.True(t, out[2].Success)
	require.Len(t, out[0].AffectedReferences, 1)

	rows, err := remote.Get(ctx, batch.QueryOptions{
		APIName: "Account",
		Fields:  []string{"Id", "Name", "Employees"},
		OrderBy: "Name",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0]["Name"])
	assert.Equal(t, float64(10), rows[0]["Employees"])
	assert.Equal(t, string(out[0].AffectedReferences[0]), rows[0]["Id"])

	del, err := remote.Delete(ctx, batch.DeleteOptions{RecordIDs: out[0].AffectedReferences})
	require.NoError(t, err)
	require.Len(t, del, 1)
	assert.True(t, del[0].Success, del[0].Reason)

	_, err = remote.Get(ctx, batch.QueryOptions{APIName: "Nope"})
	assert.True(t, errors.Is(err, errors.BackendRejected), "got %v", err)
}

func TestMissingAllOrNoneDefaultsToTrue(t *testing.T) {
	stub := &stubInvoker{}
	conn := serve(t, stub)

	in, err := structpb.NewStruct(map[string]any{"recordIds": []any{"a1"}})
	require.NoError(t, err)
	resp := new(structpb.Struct)
	require.NoError(t, conn.Invoke(context.Background(), MethodDelete, in, resp))

	assert.True(t, stub.lastDelete.AllOrNone)
	assert.Equal(t, []records.Reference{"a1"}, stub.lastDelete.RecordIDs)
	assert.Len(t, resp.GetFields()[keyOutcomes].GetListValue().GetValues(), 1)
}

func TestErrorKindsSurviveTransport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		ids      []records.Reference
		wantCode codes.Code
		wantKind errors.Kind
	}{
		{"invalid argument", nil, nil, codes.InvalidArgument, errors.InvalidArgument},
		{"unavailable", errors.New(errors.BackendUnavailable, "connection refused"), []records.Reference{"a"}, codes.Unavailable, errors.BackendUnavailable},
		{"rejected", fmt.Errorf("permission denied for table account"), []records.Reference{"a"}, codes.FailedPrecondition, errors.BackendRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := serve(t, &stubInvoker{err: tt.err})
			client := NewClient(conn, "")

			_, err := client.DeleteRecords(context.Background(), batch.DeleteBatch{RecordIDs: tt.ids, AllOrNone: true})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestStatusMessagesAreMasked(t *testing.T) {
	err := statusFor(errors.Wrap(errors.BackendUnavailable, "connect", fmt.Errorf("dial postgres://admin:hunter2@db/app")))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
	assert.NotContains(t, st.Message(), "hunter2")

	assert.Equal(t, codes.Internal, status.Code(statusFor(fmt.Errorf("boom"))))
}

func TestBearerToken(t *testing.T) {
	conn := serve(t, &stubInvoker{}, WithToken("s3cret"))
	b := batch.DeleteBatch{RecordIDs: []records.Reference{"a"}, AllOrNone: true}

	_, err := NewClient(conn, "").DeleteRecords(context.Background(), b)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.True(t, errors.Is(err, errors.BackendRejected))

	_, err = NewClient(conn, "wrong").DeleteRecords(context.Background(), b)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	out, err := NewClient(conn, "s3cret").DeleteRecords(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Success)
}

func TestDialValidatesAddress(t *testing.T) {
	_, err := Dial("  ", DialOptions{Insecure: true})
	assert.True(t, errors.Is(err, errors.InvalidArgument))

	c, err := Dial("localhost", DialOptions{Insecure: true})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
