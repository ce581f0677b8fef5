package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 输入或配置校验失败
	ErrValidation = errors.New("validation failed")
	// ErrInvalidInput 佣金计算入参非法
	ErrInvalidInput = fmt.Errorf("%w: invalid commission input", ErrValidation)
	// ErrCommissionConfigInvalid 佣金配置非法
	ErrCommissionConfigInvalid = fmt.Errorf("%w: invalid commission config", ErrValidation)
	// ErrTierStructureInvalid 佣金等级结构非法
	ErrTierStructureInvalid = fmt.Errorf("%w: invalid tier structure", ErrValidation)

	// ErrNotFound 推广用户或记录不存在
	ErrNotFound = errors.New("not found")
	// ErrAffiliateExists 推广用户已存在
	ErrAffiliateExists = errors.New("affiliate already exists")

	// ErrInvariantViolation 内部一致性被破坏（如佣金记录ID重复）
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrEngineShutdown 佣金引擎已关闭
	ErrEngineShutdown = errors.New("commission engine is shut down")
)
