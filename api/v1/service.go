package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "milestones.v1.MilestoneService"

const (
	MilestoneService_GetOrCreateCurrentSession_FullMethodName = "/milestones.v1.MilestoneService/GetOrCreateCurrentSession"
	MilestoneService_RecordAnswer_FullMethodName              = "/milestones.v1.MilestoneService/RecordAnswer"
	MilestoneService_ClassifyGroupFeedback_FullMethodName     = "/milestones.v1.MilestoneService/ClassifyGroupFeedback"
	MilestoneService_ClassifyMilestoneFeedback_FullMethodName = "/milestones.v1.MilestoneService/ClassifyMilestoneFeedback"
	MilestoneService_RunStatisticsUpdate_FullMethodName       = "/milestones.v1.MilestoneService/RunStatisticsUpdate"
	MilestoneService_SetSuspiciousState_FullMethodName        = "/milestones.v1.MilestoneService/SetSuspiciousState"
	MilestoneService_GetMilestoneStatistics_FullMethodName    = "/milestones.v1.MilestoneService/GetMilestoneStatistics"
	MilestoneService_ListAnswerSessions_FullMethodName        = "/milestones.v1.MilestoneService/ListAnswerSessions"
)

// MilestoneServiceServer is the server API for the milestone service.
type MilestoneServiceServer interface {
	GetOrCreateCurrentSession(context.Context, *GetOrCreateCurrentSessionRequest) (*Session, error)
	RecordAnswer(context.Context, *RecordAnswerRequest) (*Session, error)
	ClassifyGroupFeedback(context.Context, *ClassifyGroupFeedbackRequest) (*GroupFeedbackResponse, error)
	ClassifyMilestoneFeedback(context.Context, *ClassifyMilestoneFeedbackRequest) (*MilestoneFeedbackResponse, error)
	RunStatisticsUpdate(context.Context, *RunStatisticsUpdateRequest) (*RunStatisticsUpdateResponse, error)
	SetSuspiciousState(context.Context, *SetSuspiciousStateRequest) (*Session, error)
	GetMilestoneStatistics(context.Context, *GetMilestoneStatisticsRequest) (*MilestoneStatistics, error)
	ListAnswerSessions(context.Context, *ListAnswerSessionsRequest) (*ListAnswerSessionsResponse, error)
	mustEmbedUnimplementedMilestoneServiceServer()
}

// UnimplementedMilestoneServiceServer must be embedded to have forward
// compatible implementations.
type UnimplementedMilestoneServiceServer struct{}

func (UnimplementedMilestoneServiceServer) GetOrCreateCurrentSession(context.Context, *GetOrCreateCurrentSessionRequest) (*Session, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrCreateCurrentSession not implemented")
}
func (UnimplementedMilestoneServiceServer) RecordAnswer(context.Context, *RecordAnswerRequest) (*Session, error) {
	return nil, status.Error(codes.Unimplemented, "method RecordAnswer not implemented")
}
func (UnimplementedMilestoneServiceServer) ClassifyGroupFeedback(context.Context, *ClassifyGroupFeedbackRequest) (*GroupFeedbackResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClassifyGroupFeedback not implemented")
}
func (UnimplementedMilestoneServiceServer) ClassifyMilestoneFeedback(context.Context, *ClassifyMilestoneFeedbackRequest) (*MilestoneFeedbackResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClassifyMilestoneFeedback not implemented")
}
func (UnimplementedMilestoneServiceServer) RunStatisticsUpdate(context.Context, *RunStatisticsUpdateRequest) (*RunStatisticsUpdateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RunStatisticsUpdate not implemented")
}
func (UnimplementedMilestoneServiceServer) SetSuspiciousState(context.Context, *SetSuspiciousStateRequest) (*Session, error) {
	return nil, status.Error(codes.Unimplemented, "method SetSuspiciousState not implemented")
}
func (UnimplementedMilestoneServiceServer) GetMilestoneStatistics(context.Context, *GetMilestoneStatisticsRequest) (*MilestoneStatistics, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMilestoneStatistics not implemented")
}
func (UnimplementedMilestoneServiceServer) ListAnswerSessions(context.Context, *ListAnswerSessionsRequest) (*ListAnswerSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAnswerSessions not implemented")
}
func (UnimplementedMilestoneServiceServer) mustEmbedUnimplementedMilestoneServiceServer() {}

func RegisterMilestoneServiceServer(s grpc.ServiceRegistrar, srv MilestoneServiceServer) {
	s.RegisterService(&MilestoneService_ServiceDesc, srv)
}

// unaryHandler adapts a typed method to the grpc.MethodDesc handler shape.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(srv MilestoneServiceServer, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MilestoneServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MilestoneServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// MilestoneService_ServiceDesc is the grpc.ServiceDesc for the milestone
// service. Messages travel with the JSON codec.
var MilestoneService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MilestoneServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetOrCreateCurrentSession",
			Handler:    unaryHandler(MilestoneService_GetOrCreateCurrentSession_FullMethodName, MilestoneServiceServer.GetOrCreateCurrentSession),
		},
		{
			MethodName: "RecordAnswer",
			Handler:    unaryHandler(MilestoneService_RecordAnswer_FullMethodName, MilestoneServiceServer.RecordAnswer),
		},
		{
			MethodName: "ClassifyGroupFeedback",
			Handler:    unaryHandler(MilestoneService_ClassifyGroupFeedback_FullMethodName, MilestoneServiceServer.ClassifyGroupFeedback),
		},
		{
			MethodName: "ClassifyMilestoneFeedback",
			Handler:    unaryHandler(MilestoneService_ClassifyMilestoneFeedback_FullMethodName, MilestoneServiceServer.ClassifyMilestoneFeedback),
		},
		{
			MethodName: "RunStatisticsUpdate",
			Handler:    unaryHandler(MilestoneService_RunStatisticsUpdate_FullMethodName, MilestoneServiceServer.RunStatisticsUpdate),
		},
		{
			MethodName: "SetSuspiciousState",
			Handler:    unaryHandler(MilestoneService_SetSuspiciousState_FullMethodName, MilestoneServiceServer.SetSuspiciousState),
		},
		{
			MethodName: "GetMilestoneStatistics",
			Handler:    unaryHandler(MilestoneService_GetMilestoneStatistics_FullMethodName, MilestoneServiceServer.GetMilestoneStatistics),
		},
		{
			MethodName: "ListAnswerSessions",
			Handler:    unaryHandler(MilestoneService_ListAnswerSessions_FullMethodName, MilestoneServiceServer.ListAnswerSessions),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "milestones/v1/milestones.json",
}

// MilestoneServiceClient is the client API for the milestone service.
type MilestoneServiceClient interface {
	GetOrCreateCurrentSession(ctx context.Context, in *GetOrCreateCurrentSessionRequest, opts ...grpc.CallOption) (*Session, error)
	RecordAnswer(ctx context.Context, in *RecordAnswerRequest, opts ...grpc.CallOption) (*Session, error)
	ClassifyGroupFeedback(ctx context.Context, in *ClassifyGroupFeedbackRequest, opts ...grpc.CallOption) (*GroupFeedbackResponse, error)
	ClassifyMilestoneFeedback(ctx context.Context, in *ClassifyMilestoneFeedbackRequest, opts ...grpc.CallOption) (*MilestoneFeedbackResponse, error)
	RunStatisticsUpdate(ctx context.Context, in *RunStatisticsUpdateRequest, opts ...grpc.CallOption) (*RunStatisticsUpdateResponse, error)
	SetSuspiciousState(ctx context.Context, in *SetSuspiciousStateRequest, opts ...grpc.CallOption) (*Session, error)
	GetMilestoneStatistics(ctx context.Context, in *GetMilestoneStatisticsRequest, opts ...grpc.CallOption) (*MilestoneStatistics, error)
	ListAnswerSessions(ctx context.Context, in *ListAnswerSessionsRequest, opts ...grpc.CallOption) (*ListAnswerSessionsResponse, error)
}

type milestoneServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMilestoneServiceClient(cc grpc.ClientConnInterface) MilestoneServiceClient {
	return &milestoneServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *milestoneServiceClient) GetOrCreateCurrentSession(ctx context.Context, in *GetOrCreateCurrentSessionRequest, opts ...grpc.CallOption) (*Session, error) {
	return invoke[Session](ctx, c.cc, MilestoneService_GetOrCreateCurrentSession_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) RecordAnswer(ctx context.Context, in *RecordAnswerRequest, opts ...grpc.CallOption) (*Session, error) {
	return invoke[Session](ctx, c.cc, MilestoneService_RecordAnswer_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) ClassifyGroupFeedback(ctx context.Context, in *ClassifyGroupFeedbackRequest, opts ...grpc.CallOption) (*GroupFeedbackResponse, error) {
	return invoke[GroupFeedbackResponse](ctx, c.cc, MilestoneService_ClassifyGroupFeedback_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) ClassifyMilestoneFeedback(ctx context.Context, in *ClassifyMilestoneFeedbackRequest, opts ...grpc.CallOption) (*MilestoneFeedbackResponse, error) {
	return invoke[MilestoneFeedbackResponse](ctx, c.cc, MilestoneService_ClassifyMilestoneFeedback_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) RunStatisticsUpdate(ctx context.Context, in *RunStatisticsUpdateRequest, opts ...grpc.CallOption) (*RunStatisticsUpdateResponse, error) {
	return invoke[RunStatisticsUpdateResponse](ctx, c.cc, MilestoneService_RunStatisticsUpdate_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) SetSuspiciousState(ctx context.Context, in *SetSuspiciousStateRequest, opts ...grpc.CallOption) (*Session, error) {
	return invoke[Session](ctx, c.cc, MilestoneService_SetSuspiciousState_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) GetMilestoneStatistics(ctx context.Context, in *GetMilestoneStatisticsRequest, opts ...grpc.CallOption) (*MilestoneStatistics, error) {
	return invoke[MilestoneStatistics](ctx, c.cc, MilestoneService_GetMilestoneStatistics_FullMethodName, in, opts)
}

func (c *milestoneServiceClient) ListAnswerSessions(ctx context.Context, in *ListAnswerSessionsRequest, opts ...grpc.CallOption) (*ListAnswerSessionsResponse, error) {
	return invoke[ListAnswerSessionsResponse](ctx, c.cc, MilestoneService_ListAnswerSessions_FullMethodName, in, opts)
}
