package api

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// validateMaxBytes в отличии от тэга max который проверяет длину рун, - проверят длину байт в поле.
func validateMaxBytes(fl validator.FieldLevel) bool {
	param := fl.Param() // получаем значение из тега
	maxBytes, err := strconv.Atoi(param)
	if err != nil {
		return false
	}

	// нужно убедится что значение поля - строка.
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return len([]byte(str)) <= maxBytes
}

// validateMoney проверяет, что сумма положительная.
func validateMoney(fl validator.FieldLevel) bool {
	amount, ok := fl.Field().Interface().(domain.Amount)
	if !ok {
		return false
	}
	return amount > 0
}

func registerValidators() error {
	var err error
	registerOnce.Do(func() {
		v, _ := binding.Validator.Engine().(*validator.Validate)
		if regErr := v.RegisterValidation("max_bytes", validateMaxBytes); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
			return
		}
		if regErr := v.RegisterValidation("money", validateMoney); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
		}
	})
	return err
}
