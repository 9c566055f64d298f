package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullVersion(t *testing.T) {
	t.Parallel()
	version := FullVersion()
	assert.Equal(t, fmt.Sprintf("%v Copyright (C) %v", LUAVERSION, time.Now().Year()), version)
}

func TestCopyright(t *testing.T) {
	t.Parallel()
	copyright := Copyright()
	assert.Equal(t, fmt.Sprintf("Copyright (C) %v", time.Now().Year()), copyright)
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, INITIALSTACKSIZE, cfg.Runtime.InitialStackSize)
	assert.Equal(t, MAXSTACKSIZE, cfg.Runtime.MaxStackSize)
	assert.Equal(t, MAXCALLDEPTH, cfg.Runtime.MaxCallDepth)
	assert.False(t, cfg.Runtime.Warnings)
	assert.NoError(t, cfg.Validate())
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc     string
		cfg      Config
		expected Config
	}{
		{desc: "zero config", cfg: Config{}, expected: Default()},
		{desc: "defaults unchanged", cfg: Default(), expected: Default()},
		{
			desc:     "negative sizes",
			cfg:      Config{Runtime: RuntimeConfig{InitialStackSize: -1, MaxStackSize: -1, MaxCallDepth: -5}},
			expected: Default(),
		},
		{
			desc: "set fields are kept",
			cfg: Config{
				Runtime: RuntimeConfig{InitialStackSize: 16, MaxCallDepth: 10, Warnings: true},
				Modules: ModuleConfig{Path: []string{}},
				Log:     LogConfig{Level: "debug", Format: "json"},
			},
			expected: Config{
				Runtime: RuntimeConfig{InitialStackSize: 16, MaxStackSize: MAXSTACKSIZE, MaxCallDepth: 10, Warnings: true},
				Modules: ModuleConfig{Path: []string{}},
				Log:     LogConfig{Level: "debug", Format: "json"},
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			cfg := tc.cfg.WithDefaults()
			assert.Equal(t, tc.expected, cfg)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc   string
		src    string
		assert func(t *testing.T, cfg Config)
		err    string
	}{
		{
			desc: "override keeps other defaults",
			src: `
[runtime]
max_call_depth = 50
warnings = true
`,
			assert: func(t *testing.T, cfg Config) {
				t.Helper()
				assert.Equal(t, 50, cfg.Runtime.MaxCallDepth)
				assert.True(t, cfg.Runtime.Warnings)
				assert.Equal(t, INITIALSTACKSIZE, cfg.Runtime.InitialStackSize)
				assert.Equal(t, []string{"./?.luac", "./?/init.luac"}, cfg.Modules.Path)
			},
		},
		{
			desc: "module paths and logs",
			src: `
[modules]
path = ["lib/?.luac"]
[log]
level = "debug"
format = "json"
`,
			assert: func(t *testing.T, cfg Config) {
				t.Helper()
				assert.Equal(t, []string{"lib/?.luac"}, cfg.Modules.Path)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
			},
		},
		{
			desc: "stack smaller than initial",
			src:  "[runtime]\nmax_stack_size = 2\n",
			err:  "runtime.max_stack_size must be at least runtime.initial_stack_size",
		},
		{
			desc: "module path without placeholder",
			src:  "[modules]\npath = [\"lib/mod.luac\"]\n",
			err:  `modules.path entry "lib/mod.luac" has no ? placeholder`,
		},
		{
			desc: "bad log format",
			src:  "[log]\nformat = \"xml\"\n",
			err:  `log.format "xml" must be text or json`,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			err := Parse(tc.src, &cfg)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			tc.assert(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "luacore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[runtime]\nmax_call_depth = 10\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Runtime.MaxCallDepth)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "cannot read")
}
