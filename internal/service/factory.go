package service

import (
	"fmt"

	"github.com/fsdevblog/groph-auction/internal/service/psswd"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	UserService    *UserService
	WalletService  *WalletService
	AuctionService *AuctionService
}

func Factory(unitOfWork uow.UOW, opts Options, publisher EventPublisher, l *logrus.Logger) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, psswd.PasswordHash{}, opts)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	walletService, walletServiceErr := NewWalletService(unitOfWork, opts, l)
	if walletServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", walletServiceErr.Error())
	}

	auctionService, auctionServiceErr := NewAuctionService(unitOfWork, walletService, publisher, opts, l)
	if auctionServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", auctionServiceErr.Error())
	}

	return &AppServices{
		UserService:    userService,
		WalletService:  walletService,
		AuctionService: auctionService,
	}, nil
}
