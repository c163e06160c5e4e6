// Package apperror 定义了引擎对外暴露的错误分类。
// 调用方通过 Kind 判断是否可以重试，通过 UserID/Date/EntryID 定位出错的数据。
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind 是错误的分类
type Kind int

const (
	// Internal 是未分类的错误，默认值
	Internal Kind = iota
	// InvalidArgument 缺少用户ID或条目格式错误，永不重试
	InvalidArgument
	// NotFound 读取要求存在的记录时记录不存在
	NotFound
	// TransactionConflict 并发写入冲突，重试次数已耗尽
	TransactionConflict
	// DependencyUnavailable 下游依赖（如资料行）缺失或不可用
	DependencyUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case NotFound:
		return "NOT_FOUND"
	case TransactionConflict:
		return "TRANSACTION_CONFLICT"
	case DependencyUnavailable:
		return "DEPENDENCY_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// Error 是带上下文的应用错误
type Error struct {
	Kind    Kind
	Op      string
	Msg     string
	UserID  string
	Date    string
	EntryID string
	// Details 保存字段级的校验错误
	Details []map[string]string
	Err     error
}

// New 创建一个新的应用错误
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 用操作名包装 err，并继承内部应用错误的分类。
// err 为 nil 时返回 nil。
func Wrap(err error, op string) *Error {
	if err == nil {
		return nil
	}
	e := &Error{Kind: KindOf(err), Op: op, Err: err}
	var inner *Error
	if errors.As(err, &inner) {
		e.UserID, e.Date, e.EntryID = inner.UserID, inner.Date, inner.EntryID
		e.Details = inner.Details
	}
	return e
}

func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

func (e *Error) WithDate(date string) *Error {
	e.Date = date
	return e
}

func (e *Error) WithEntry(entryID string) *Error {
	e.EntryID = entryID
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	var ctx []string
	if e.UserID != "" {
		ctx = append(ctx, "user="+e.UserID)
	}
	if e.Date != "" {
		ctx = append(ctx, "date="+e.Date)
	}
	if e.EntryID != "" {
		ctx = append(ctx, "entry="+e.EntryID)
	}
	if len(ctx) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf 返回错误链中第一个应用错误的分类，找不到时返回 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is 判断 err 是否属于 kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 将错误分类映射为HTTP状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TransactionConflict:
		return http.StatusConflict
	case DependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// internalMessage 是 Internal 错误返回给客户端的信息，原始错误只写入日志
const internalMessage = "服务器内部错误"

// Response 生成返回给客户端的错误体。Internal 错误不暴露错误链中的驱动信息。
func Response(err error) map[string]any {
	msg := err.Error()
	if KindOf(err) == Internal {
		msg = internalMessage
	}
	body := map[string]any{
		"error": msg,
		"code":  KindOf(err).String(),
	}
	var e *Error
	if errors.As(err, &e) && len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return body
}
