package health

import (
	"context"
	"fmt"
)

// SampleCheck 始终健康
type SampleCheck struct{}

// Name 检查名称
func (SampleCheck) Name() string { return "Sample" }

// Check 实现 Checker
func (SampleCheck) Check(ctx context.Context) error { return nil }

// Description 健康时的描述
func (SampleCheck) Description() string { return "A healthy result." }

// Pinger redis.PubSub 等可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck 通过 Ping 探活
type PingCheck struct {
	name   string
	pinger Pinger
}

// NewPingCheck 创建 Ping 检查
func NewPingCheck(name string, pinger Pinger) *PingCheck {
	return &PingCheck{name: name, pinger: pinger}
}

// Name 检查名称
func (p *PingCheck) Name() string { return p.name }

// Check 实现 Checker
func (p *PingCheck) Check(ctx context.Context) error {
	if err := p.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", p.name, err)
	}
	return nil
}
