package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/logger"
	"github.com/fsdevblog/groph-auction/internal/service/tokens"
	"github.com/fsdevblog/groph-auction/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-auction/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type HandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockUserService    *mocks.MockUserServicer
	mockWalletService  *mocks.MockWalletServicer
	mockAuctionService *mocks.MockAuctionServicer
	jwtSecret          []byte

	userID     int64
	userToken  string
	adminID    int64
	adminToken string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	mockCtrl := gomock.NewController(s.T())

	s.mockUserService = mocks.NewMockUserServicer(mockCtrl)
	s.mockWalletService = mocks.NewMockWalletServicer(mockCtrl)
	s.mockAuctionService = mocks.NewMockAuctionServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	l, err := logger.New(io.Discard, "error")
	s.Require().NoError(err)

	router, err := New(RouterArgs{
		Logger:         l,
		UserService:    s.mockUserService,
		WalletService:  s.mockWalletService,
		AuctionService: s.mockAuctionService,
		JWTSecretKey:   s.jwtSecret,
	})
	s.Require().NoError(err)
	s.router = router

	s.userID = 1
	s.userToken = s.token(s.userID, domain.RoleUser)
	s.adminID = 100
	s.adminToken = s.token(s.adminID, domain.RoleAdmin)
}

func (s *HandlerTestSuite) token(userID int64, role domain.RoleType) string {
	token, err := tokens.GenerateUserJWT(userID, role, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

// request выполняет JSON запрос к роутеру. body сериализуется, если это не []byte.
func (s *HandlerTestSuite) request(
	method, url, token string,
	body any,
	opts ...func(*testutils.RequestOptions),
) *http.Response {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	reqOpts := append([]func(*testutils.RequestOptions){testutils.WithJSON(), testutils.WithBearer(token)}, opts...)
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: method,
		URL:    url,
		Body:   reader,
	}, reqOpts...)
	s.Require().NoError(err)
	return res
}

// errorText возвращает поле error из тела ответа.
func (s *HandlerTestSuite) errorText(res *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(testutils.DecodeBody(res, &body))
	return body.Error
}

func (s *HandlerTestSuite) closeBody(res *http.Response) {
	s.Require().NoError(res.Body.Close())
}
