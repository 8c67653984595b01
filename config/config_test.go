package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: 0123456789abcdef\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Scheduling.ReadyRule != ReadyRuleQuorum {
		t.Errorf("期望默认 ready_rule=quorum，实际 %s", cfg.Scheduling.ReadyRule)
	}
	if cfg.Scheduling.DefaultCapacity != 2 {
		t.Errorf("期望默认容量 2，实际 %d", cfg.Scheduling.DefaultCapacity)
	}
	if cfg.Scheduling.LockWait != 3*time.Second {
		t.Errorf("期望 lock_wait=3s，实际 %s", cfg.Scheduling.LockWait)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: 0123456789abcdef\n")
	t.Setenv("DEFENSE_SCHEDULING_READY_RULE", "composition")
	t.Setenv("DEFENSE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Scheduling.ReadyRule != ReadyRuleComposition {
		t.Errorf("期望环境变量覆盖 ready_rule，实际 %s", cfg.Scheduling.ReadyRule)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望端口 9090，实际 %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Auth:   AuthConfig{JWTSecret: "0123456789abcdef"},
			Scheduling: SchedulingConfig{
				ReadyRule:       ReadyRuleQuorum,
				LockBackend:     LockBackendLocal,
				LockTTL:         time.Second,
				LockWait:        time.Second,
				DefaultCapacity: 2,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"短密钥", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"非法端口", func(c *Config) { c.Server.Port = 0 }},
		{"未知就绪规则", func(c *Config) { c.Scheduling.ReadyRule = "strict" }},
		{"未知锁实现", func(c *Config) { c.Scheduling.LockBackend = "etcd" }},
		{"容量为零", func(c *Config) { c.Scheduling.DefaultCapacity = 0 }},
		{"未知时区", func(c *Config) { c.Scheduling.Timezone = "Mars/Olympus" }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}
