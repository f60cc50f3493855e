package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分类对齐引擎的降级语义：
//   - UNAVAILABLE（上游不可用）→ 可恢复，降级到次弱算法层或空响应
//   - INSUFFICIENT_DATA（画像/相似边不足）→ 预期内，不算故障，路由到弱层
//   - INVALID_INPUT（非法过滤/分页）→ 边界拒绝，不进入核心
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "cache", "similarity"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"          // 资源不存在
	ErrorCodeUnavailable      = "UNAVAILABLE"        // 上游不可用
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA"  // 数据不足（预期内）
	ErrorCodeInvalidInput     = "INVALID_INPUT"      // 输入无效
	ErrorCodeInternalError    = "INTERNAL_ERROR"     // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"
	ModuleCache      = "cache"
	ModuleProfile    = "profile"
	ModuleSimilarity = "similarity"
	ModuleRanker     = "ranker"
	ModuleService    = "service"
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA。
func IsInsufficientData(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInsufficientData
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT。
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// 预定义的共享错误实例

var (
	// ErrStoreNotFound 表示存储中 key/行不存在。
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: not found")

	// ErrCacheMiss 表示缓存未命中。缓存是 advisory 的：未命中永远走重算，不上抛。
	ErrCacheMiss = NewDomainError(ModuleCache, ErrorCodeNotFound, "cache: miss")

	// ErrNoProfile 表示用户尚无画像（零交互），调用方应回退到热度排序。
	ErrNoProfile = NewDomainError(ModuleProfile, ErrorCodeInsufficientData, "profile: no interactions yet")
)

// IsStoreNotFound 检查错误是否为存储层的 key/行不存在。
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

// IsCacheMiss 检查错误是否为缓存未命中。
func IsCacheMiss(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleCache && domainErr.Code == ErrorCodeNotFound
}
