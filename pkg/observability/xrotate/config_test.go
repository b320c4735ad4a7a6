package xrotate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "", want: 0},
		{input: "  ", want: 0},
		{input: "1024", want: 1024},
		{input: "10MiB", want: 10 << 20},
		{input: "500KB", want: 500_000},
		{input: "1.5 KiB", want: 1536},
		{input: "bogus", wantErr: true},
		{input: "-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFileMode(t *testing.T) {
	tests := []struct {
		input   string
		want    os.FileMode
		wantErr bool
	}{
		{input: "", want: DefaultFileMode},
		{input: "0640", want: 0o640},
		{input: "0o644", want: 0o644},
		{input: "600", want: 0o600},
		{input: "0999", wantErr: true},
		{input: "01777", wantErr: true},
		{input: "rw-r--r--", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFileMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFileMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigCondition(t *testing.T) {
	cond, err := Config{Period: "hourly", MaxSize: "1MiB", UTC: true}.Condition()
	require.NoError(t, err)
	assert.Equal(t, Condition{Period: PeriodHourly, MaxSize: 1 << 20, Location: time.UTC}, cond)

	cond, err = Config{}.Condition()
	require.NoError(t, err)
	assert.Equal(t, Condition{}, cond)

	_, err = Config{MaxSize: "lots"}.Condition()
	assert.ErrorIs(t, err, ErrInvalidMaxSize)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Folder: "/var/log/app", Prefix: "app.log"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "缺少目录", mutate: func(c *Config) { c.Folder = "" }, wantErr: ErrEmptyFolder},
		{name: "缺少前缀", mutate: func(c *Config) { c.Prefix = "" }, wantErr: ErrEmptyPrefix},
		{name: "maxFiles 为负", mutate: func(c *Config) { c.MaxFiles = -1 }, wantErr: ErrInvalidMaxFiles},
		{name: "未知周期", mutate: func(c *Config) { c.Period = "weekly" }, wantErr: ErrInvalidPeriod},
		{name: "大小无法解析", mutate: func(c *Config) { c.MaxSize = "big" }, wantErr: ErrInvalidMaxSize},
		{name: "未知指针", mutate: func(c *Config) { c.Pointer = "hardlink" }, wantErr: ErrInvalidPointer},
		{name: "缓冲无法解析", mutate: func(c *Config) { c.BufferSize = "some" }, wantErr: ErrInvalidConfig},
		{name: "权限无法解析", mutate: func(c *Config) { c.FileMode = "abc" }, wantErr: ErrInvalidFileMode},
		{name: "未知后端", mutate: func(c *Config) { c.Backend = "kafka" }, wantErr: ErrInvalidBackend},
		{name: "lumberjack 不支持周期", mutate: func(c *Config) {
			c.Backend = BackendLumberjack
			c.Period = "daily"
		}, wantErr: ErrInvalidPeriod},
		{name: "lumberjack 不支持单文件", mutate: func(c *Config) {
			c.Backend = BackendLumberjack
			c.MaxFiles = 1
		}, wantErr: ErrInvalidMaxFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigFromYAML(t *testing.T) {
	raw := []byte(`
backend: rolling
folder: /var/log/app
prefix: app.log
period: daily
max_size: 100MiB
max_files: 7
pointer: file
utc: true
buffer_size: 32KiB
file_mode: "0640"
`)
	k := koanf.New(".")
	require.NoError(t, k.Load(rawbytes.Provider(raw), yaml.Parser()))

	var cfg Config
	require.NoError(t, k.Unmarshal("", &cfg))
	assert.Equal(t, Config{
		Backend:    BackendRolling,
		Folder:     "/var/log/app",
		Prefix:     "app.log",
		Period:     "daily",
		MaxSize:    "100MiB",
		MaxFiles:   7,
		Pointer:    "file",
		UTC:        true,
		BufferSize: "32KiB",
		FileMode:   "0640",
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestOpenRolling(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Config{
		Folder:     dir,
		Prefix:     "app.log",
		Period:     "daily",
		MaxSize:    "1KiB",
		MaxFiles:   3,
		UTC:        true,
		BufferSize: "4KiB",
		FileMode:   "0640",
	})
	require.NoError(t, err)

	_, err = r.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, r.Flush())

	pointer := filepath.Join(dir, "app.log")
	data, err := os.ReadFile(pointer)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	info, err := os.Lstat(pointer)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	require.NoError(t, r.Rotate())
	archives, err := ListArchives(OSFS(), dir, "app.log")
	require.NoError(t, err)
	assert.Len(t, archives, 2)

	info, err = os.Stat(filepath.Join(dir, archives[0].Name))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	require.NoError(t, r.Close())
}

func TestOpenFilePointer(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Config{Folder: dir, Prefix: "app.log", Pointer: "file"})
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	info, err := os.Lstat(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}

func TestOpenOptionsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Config{Folder: dir, Prefix: "app.log", Pointer: "file"}, WithPointer(PointerSymlink))
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	info, err := os.Lstat(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}

func TestOpenRejectsHugeBuffer(t *testing.T) {
	_, err := Open(Config{Folder: t.TempDir(), Prefix: "app.log", BufferSize: "1GiB"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenLumberjack(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(Config{
		Backend:  BackendLumberjack,
		Folder:   dir,
		Prefix:   "app.log",
		MaxSize:  "1MiB",
		MaxFiles: 3,
	})
	require.NoError(t, err)

	_, err = r.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, r.Flush())
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	backups, err := findLumberjackBackups(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestOpenLumberjackRetention(t *testing.T) {
	tests := []struct {
		name        string
		maxFiles    int
		wantBackups int
	}{
		{name: "不限制时保留全部备份", maxFiles: 0, wantBackups: 0},
		{name: "MaxFiles 含活动文件", maxFiles: 3, wantBackups: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Open(Config{
				Backend:  BackendLumberjack,
				Folder:   t.TempDir(),
				Prefix:   "app.log",
				MaxSize:  "1MiB",
				MaxFiles: tt.maxFiles,
			})
			require.NoError(t, err)
			defer r.Close()

			lr, ok := r.(*lumberjackRotator)
			require.True(t, ok)
			assert.Equal(t, tt.wantBackups, lr.logger.MaxBackups)
			assert.Zero(t, lr.logger.MaxAge, "按天数清理会违反 MaxFiles 的语义")
		})
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	r, err := Open(Config{Prefix: "app.log"})
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrEmptyFolder)
}
