package service

import (
	"errors"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/transcribe"
	apperrors "github.com/lk2023060901/llm-gateway-client/internal/pkg/errors"
)

// classify 把领域错误映射为业务错误码
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, types.ErrMissingAPIKey), errors.Is(err, transcribe.ErrMissingAPIKey):
		return apperrors.Wrap(err, apperrors.ErrGatewayConfig)
	case errors.Is(err, openrouter.ErrMissingModel):
		return apperrors.Wrap(err, apperrors.ErrInvalidParams)
	case errors.Is(err, catalog.ErrNoEligibleModel):
		return apperrors.Wrap(err, apperrors.ErrCatalogNoEligible)
	case errors.Is(err, content.ErrUnsupportedRemote):
		return apperrors.Wrap(err, apperrors.ErrContentUnsupported)
	case errors.Is(err, content.ErrNilSource), errors.Is(err, content.ErrOutsideRoot):
		return apperrors.Wrap(err, apperrors.ErrContentUnreadable)
	}

	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		return apperrors.Wrap(err, apperrors.ErrCatalogInvalid)
	}

	if pe, ok := types.AsProviderError(err); ok {
		switch {
		case pe.Type == types.ErrorTypeDecode:
			return apperrors.Wrap(err, apperrors.ErrGatewayStream)
		case pe.IsRetryable():
			return apperrors.Wrap(err, apperrors.ErrGatewayExhausted)
		default:
			return apperrors.Wrap(err, apperrors.ErrGatewayUpstream)
		}
	}
	return err
}
