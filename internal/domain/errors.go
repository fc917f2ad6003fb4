package domain

import "fmt"

// Error types for consistent error handling across the assistant.
// Validation failures carry user-facing messages in the product locale.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrMissingInput indicates a calculation was requested before both cash
// snapshots were entered.
type ErrMissingInput struct{}

func (e *ErrMissingInput) Error() string {
	return "请先完成数据录入"
}

// ErrNoTargetSelected indicates an image arrived before an upload target
// was chosen.
type ErrNoTargetSelected struct{}

func (e *ErrNoTargetSelected) Error() string {
	return "请先选择要识别的目标（初始/最终，现金+经验或储备金）"
}

// ErrNothingPending indicates confirm was called with no target or no image.
type ErrNothingPending struct{}

func (e *ErrNothingPending) Error() string {
	return "请先选择或粘贴图片，再点击确定上传"
}

// ErrScanInProgress indicates a confirm arrived while a scan is running.
type ErrScanInProgress struct{}

func (e *ErrScanInProgress) Error() string {
	return "正在识别中，请稍候"
}

// ErrScanCancelled indicates the user discarded the upload while its scan was
// in flight; the recognised values were thrown away.
type ErrScanCancelled struct{}

func (e *ErrScanCancelled) Error() string {
	return "识别已取消"
}

// ErrStateNotReady indicates remote state has not loaded yet; mutations are
// refused so empty defaults cannot clobber the stored copy.
type ErrStateNotReady struct{}

func (e *ErrStateNotReady) Error() string {
	return "state not loaded yet, retry after the account loads"
}

// ErrLastAccount indicates an attempt to delete the only account.
type ErrLastAccount struct{}

func (e *ErrLastAccount) Error() string {
	return "至少需要保留一个账号"
}
