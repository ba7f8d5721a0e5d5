package client

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      pb.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	dialOpts     []grpc.DialOption
}

// Option customizes a GRPCClient.
type Option func(*GRPCClient)

// WithTimeout bounds every call made through the client.
func WithTimeout(d time.Duration) Option {
	return func(c *GRPCClient) { c.timeout = d }
}

// WithDialOptions appends extra options to the underlying grpc.NewClient call.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token to every call. When the
// server reports an expired access token, it refreshes the pair once and
// retries the call.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == pb.AuthService_Refresh_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.Tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	if rerr := s.refresh(ctx, refresh); rerr != nil {
		return rerr
	}

	access, _ = s.Tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	for _, o := range opts {
		o(c)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(c.endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewAuthServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) SetTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken, s.refreshToken = access, refresh
	s.mu.Unlock()
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) refresh(ctx context.Context, presented string) error {
	resp, err := s.client.Refresh(ctx, pb.Strings(map[string]string{pb.KeyRefreshToken: presented}))
	if err != nil {
		return mapError(err)
	}
	s.SetTokens(pb.GetString(resp, pb.KeyAccessToken), pb.GetString(resp, pb.KeyRefreshToken))
	return nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, pb.Strings(nil))
	if err != nil {
		return mapError(err)
	}
	if pb.GetString(resp, pb.KeyStatus) != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email, fullName, password string) (*pb.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Register(ctx, pb.Strings(map[string]string{
		pb.KeyEmail:    email,
		pb.KeyFullName: fullName,
		pb.KeyPassword: password,
	}))
	if err != nil {
		return nil, mapError(err)
	}
	return userFrom(resp), nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*pb.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, pb.Strings(map[string]string{
		pb.KeyEmail:    email,
		pb.KeyPassword: password,
	}))
	if err != nil {
		return nil, mapError(err)
	}

	s.SetTokens(pb.GetString(resp, pb.KeyAccessToken), pb.GetString(resp, pb.KeyRefreshToken))
	return userFrom(resp), nil
}

// Refresh rotates the held token pair explicitly.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.Tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.refresh(ctx, refresh)
}

// Logout ends the session on the server and forgets the local tokens. The
// local tokens are dropped even when the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.Logout(ctx, pb.Strings(nil))
	s.SetTokens("", "")
	return mapError(err)
}

func (s *GRPCClient) ChangePassword(ctx context.Context, current, next string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ChangePassword(ctx, pb.Strings(map[string]string{
		pb.KeyCurrentPassword: current,
		pb.KeyNewPassword:     next,
	}))
	return mapError(err)
}

func (s *GRPCClient) CurrentUser(ctx context.Context) (*pb.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.CurrentUser(ctx, pb.Strings(nil))
	if err != nil {
		return nil, mapError(err)
	}
	return userFrom(resp), nil
}

func userFrom(resp *structpb.Struct) *pb.User {
	u, ok := pb.GetUser(resp)
	if !ok {
		return nil
	}
	return &u
}
