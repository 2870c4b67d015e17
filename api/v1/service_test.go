package v1_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/godilite/milestone-server/api/v1"
)

type echoServer struct {
	v1.UnimplementedMilestoneServiceServer
}

func (echoServer) RecordAnswer(ctx context.Context, req *v1.RecordAnswerRequest) (*v1.Session, error) {
	return &v1.Session{
		ID:              req.SessionID,
		SuspiciousState: "unknown",
		Answers:         []*v1.Answer{{MilestoneID: req.MilestoneID, Answer: req.Answer}},
	}, nil
}

func (echoServer) ClassifyGroupFeedback(ctx context.Context, req *v1.ClassifyGroupFeedbackRequest) (*v1.GroupFeedbackResponse, error) {
	return &v1.GroupFeedbackResponse{
		Groups:     map[int64]int32{req.SessionID: v1.TrafficLightYellow},
		Milestones: map[int64]map[int64]int32{req.SessionID: {7: v1.TrafficLightInsufficientData}},
	}, nil
}

func dial(t *testing.T, srv v1.MilestoneServiceServer, opts ...grpc.ServerOption) v1.MilestoneServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	v1.RegisterMilestoneServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return v1.NewMilestoneServiceClient(conn)
}

func TestClientServerRoundTrip(t *testing.T) {
	client := dial(t, echoServer{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := client.RecordAnswer(ctx, &v1.RecordAnswerRequest{SessionID: 3, MilestoneID: 9, Answer: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.ID)
	require.Len(t, session.Answers, 1)
	assert.Equal(t, int32(2), session.Answers[0].Answer)

	fb, err := client.ClassifyGroupFeedback(ctx, &v1.ClassifyGroupFeedbackRequest{SessionID: 4, Detailed: true})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int32{4: v1.TrafficLightYellow}, fb.Groups)
	assert.Equal(t, v1.TrafficLightInsufficientData, fb.Milestones[4][7])

	_, err = client.ListAnswerSessions(ctx, &v1.ListAnswerSessionsRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestInterceptorSeesFullMethod(t *testing.T) {
	var method string
	client := dial(t, echoServer{}, grpc.UnaryInterceptor(
		func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			method = info.FullMethod
			return handler(ctx, req)
		}))

	_, err := client.RecordAnswer(context.Background(), &v1.RecordAnswerRequest{SessionID: 1, MilestoneID: 1})
	require.NoError(t, err)
	assert.Equal(t, v1.MilestoneService_RecordAnswer_FullMethodName, method)
}

func TestCodec(t *testing.T) {
	codec := v1.Codec{}
	assert.Equal(t, "json", codec.Name())

	t.Run("plain messages", func(t *testing.T) {
		data, err := codec.Marshal(&v1.GetOrCreateCurrentSessionRequest{RespondentID: 5, ChildID: 6})
		require.NoError(t, err)
		assert.JSONEq(t, `{"respondent_id":5,"child_id":6}`, string(data))

		var req v1.GetOrCreateCurrentSessionRequest
		require.NoError(t, codec.Unmarshal(data, &req))
		assert.Equal(t, int64(6), req.GetChildID())
	})

	t.Run("protobuf messages use protojson", func(t *testing.T) {
		data, err := codec.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"SERVING"}`, string(data))

		var resp healthpb.HealthCheckResponse
		require.NoError(t, codec.Unmarshal([]byte(`{"status":"NOT_SERVING","extra":1}`), &resp))
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
	})

	t.Run("malformed input", func(t *testing.T) {
		var req v1.RecordAnswerRequest
		assert.Error(t, codec.Unmarshal([]byte("{"), &req))
	})

	t.Run("nil getters", func(t *testing.T) {
		var req *v1.GetOrCreateCurrentSessionRequest
		assert.Zero(t, req.GetRespondentID())
	})
}
