package api

import (
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/fsdevblog/groph-auction/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
)

func (s *HandlerTestSuite) TestRegister() {
	password := gofakeit.Password(true, true, true, false, false, 12)
	user := &domain.User{
		ID:        7,
		Username:  "alice",
		Email:     "alice@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now(),
	}

	s.mockUserService.EXPECT().
		Register(gomock.Any(), service.RegisterUserArgs{Username: "alice", Email: "alice@example.com", Password: password}).
		Return(user, "jwt-token", nil).Times(1)
	s.mockUserService.EXPECT().
		Register(gomock.Any(), service.RegisterUserArgs{Username: "bob", Email: "bob@example.com", Password: password}).
		Return(nil, "", domain.ErrDuplicateKey).Times(1)

	cases := []struct {
		name       string
		body       any
		token      string
		wantStatus int
	}{
		{
			name:       "registered",
			body:       UserRegisterParams{Username: "alice", Email: "alice@example.com", Password: password},
			wantStatus: http.StatusCreated,
		}, {
			name:       "duplicate",
			body:       UserRegisterParams{Username: "bob", Email: "bob@example.com", Password: password},
			wantStatus: http.StatusConflict,
		}, {
			name:       "invalid email",
			body:       UserRegisterParams{Username: "carol", Email: "not-an-email", Password: password},
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "short password",
			body:       UserRegisterParams{Username: "carol", Email: "carol@example.com", Password: "123"},
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "email over max bytes",
			body:       UserRegisterParams{Username: "carol", Email: testutils.MultibyteString(70) + "@x.io", Password: password},
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "malformed body",
			body:       []byte("{"),
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "already authorized",
			body:       UserRegisterParams{Username: "alice", Email: "alice@example.com", Password: password},
			token:      s.userToken,
			wantStatus: http.StatusForbidden,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+RegisterRoute, t.token, t.body)
			defer s.closeBody(res)
			s.Equal(t.wantStatus, res.StatusCode)
			if t.wantStatus == http.StatusCreated {
				s.Equal("Bearer jwt-token", res.Header.Get("Authorization"))
			}
		})
	}
}

func (s *HandlerTestSuite) TestLogin() {
	user := &domain.User{ID: 7, Username: "alice", Role: domain.RoleUser}

	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "alice", Password: "secret123"}).
		Return(user, "jwt-token", nil).Times(1)
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "alice", Password: "wrong-password"}).
		Return(nil, "", domain.ErrPasswordMissMatch).Times(1)
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Username: "nobody", Password: "secret123"}).
		Return(nil, "", domain.ErrRecordNotFound).Times(1)

	s.Run("ok", func() {
		res := s.request(http.MethodPost, RouteGroup+LoginRoute, "",
			UserLoginParams{Username: "alice", Password: "secret123"})
		defer s.closeBody(res)
		s.Equal(http.StatusOK, res.StatusCode)
		s.Equal("Bearer jwt-token", res.Header.Get("Authorization"))
	})
	s.Run("wrong password", func() {
		res := s.request(http.MethodPost, RouteGroup+LoginRoute, "",
			UserLoginParams{Username: "alice", Password: "wrong-password"})
		s.Equal(http.StatusUnauthorized, res.StatusCode)
		s.Equal("invalid credentials", s.errorText(res))
	})
	s.Run("unknown user", func() {
		res := s.request(http.MethodPost, RouteGroup+LoginRoute, "",
			UserLoginParams{Username: "nobody", Password: "secret123"})
		s.Equal(http.StatusUnauthorized, res.StatusCode)
		s.Equal("invalid credentials", s.errorText(res))
	})
}
