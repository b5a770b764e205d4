package auth0

import "context"

// FakeClient is a test implementation of Client
type FakeClient struct {
	Users map[string]*UserInfo // keyed by access token
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Users: map[string]*UserInfo{}}
}

func (c *FakeClient) GetUserInfo(_ context.Context, accessToken string) (*UserInfo, error) {
	info, ok := c.Users[accessToken]
	if !ok {
		return nil, ErrUserInfoFailed
	}
	return info, nil
}
