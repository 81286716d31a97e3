package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("connection refused")
	wrapped := Wrap(base, "fetch products")
	if wrapped.Error() != "fetch products: connection refused" {
		t.Errorf("Wrap(err).Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "order %s", "o-1"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrNotFound, "order %s", "o-1")
	if wrapped.Error() != "order o-1: not found" {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, CodeRemote); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(errors.New("http 502"), CodeRemote)
	if coded.Error() != "[REMOTE_FAILURE] http 502" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}
	if code := GetCode(Wrap(coded, "sync cart")); code != CodeRemote {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, CodeRemote)
	}
	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空串", code)
	}
}

func TestCategories(t *testing.T) {
	if !IsNotFound(Wrap(ErrNotFound, "product p-1")) {
		t.Error("IsNotFound(wrapped ErrNotFound) = false")
	}
	if !IsNotFound(WithCode(errors.New("gone"), CodeNotFound)) {
		t.Error("IsNotFound(CodeNotFound) = false")
	}
	if IsNotFound(ErrUnavailable) {
		t.Error("IsNotFound(ErrUnavailable) = true")
	}

	if !IsUnavailable(Wrap(ErrUnavailable, "breaker open")) {
		t.Error("IsUnavailable(wrapped ErrUnavailable) = false")
	}
	if !IsUnavailable(WithCode(errors.New("timeout"), CodeRemote)) {
		t.Error("IsUnavailable(CodeRemote) = false")
	}
	if IsUnavailable(nil) {
		t.Error("IsUnavailable(nil) = true")
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Collect(nil)
	if err := c.Err(); err != nil {
		t.Errorf("Collect(nil) 后 Err() = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	c.Collect(err1)
	c.Collect(errors.New("error 2"))
	if err := c.Err(); err != err1 {
		t.Errorf("Err() = %v，期望第一个错误 %v", err, err1)
	}
}

func TestCombine(t *testing.T) {
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1, nil); err != err1 {
		t.Errorf("Combine(nil, err1, nil) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if len(multi.Errors) != 2 {
		t.Errorf("multi.Errors 长度 = %d，期望 2", len(multi.Errors))
	}
	if combined.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("combined.Error() = %q", combined.Error())
	}
	if !errors.Is(combined, err1) || !errors.Is(combined, err2) {
		t.Error("errors.Is 应能匹配 MultiError 中的每个错误")
	}
}
