package config

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Tawesh/idb-to-sql/internal/fs"
)

func TestLoadLocalConfigMissingFile(t *testing.T) {
	fs.WithMemFs(func(afero.Fs) {
		local, err := LoadLocalConfigFromPath("/work/.ibdreplay.toml")
		if err != nil {
			t.Fatalf("missing file should not be an error: %v", err)
		}
		if local != nil {
			t.Errorf("expected nil config, got %+v", local)
		}
	})
}

func TestLoadLocalConfig(t *testing.T) {
	fs.WithMemFs(func(memFs afero.Fs) {
		content := `
[database]
host = "db.example"
port = 3307
user = "loader"
database = "restored"

[replay]
converter = "/opt/bin/ibd_to_sql"
processes = 4
threads = 8

[logging]
level = "debug"
`
		if err := afero.WriteFile(memFs, "/work/.ibdreplay.toml", []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		local, err := LoadLocalConfigFromPath("/work/.ibdreplay.toml")
		if err != nil {
			t.Fatalf("LoadLocalConfigFromPath: %v", err)
		}
		if local.Database.Host != "db.example" || local.Database.Port != 3307 || local.Database.Database != "restored" {
			t.Errorf("database section = %+v", local.Database)
		}
		if local.Replay.Converter != "/opt/bin/ibd_to_sql" || local.Replay.Processes != 4 || local.Replay.Threads != 8 {
			t.Errorf("replay section = %+v", local.Replay)
		}
		if local.Logging.Level != "debug" {
			t.Errorf("logging section = %+v", local.Logging)
		}
	})
}

func TestLoadLocalConfigInvalidTOML(t *testing.T) {
	fs.WithMemFs(func(memFs afero.Fs) {
		_ = afero.WriteFile(memFs, "/bad.toml", []byte("[database\nhost = "), 0600)
		if _, err := LoadLocalConfigFromPath("/bad.toml"); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestSaveAndReloadLocalConfig(t *testing.T) {
	fs.WithMemFs(func(memFs afero.Fs) {
		cfg := validConfig()
		cfg.Password = "never-persisted"
		cfg.LogLevel = "warn"

		if err := SaveLocalConfigToPath(ConfigFromConfig(cfg), "/work/.ibdreplay.toml"); err != nil {
			t.Fatalf("save: %v", err)
		}

		raw, _ := afero.ReadFile(memFs, "/work/.ibdreplay.toml")
		if strings.Contains(string(raw), "never-persisted") {
			t.Error("password must not be written to the config file")
		}
		info, err := memFs.Stat("/work/.ibdreplay.toml")
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}

		local, err := LoadLocalConfigFromPath("/work/.ibdreplay.toml")
		if err != nil {
			t.Fatalf("reload: %v", err)
		}

		restored := &Config{}
		ApplyLocalConfig(restored, local)
		if restored.Host != cfg.Host || restored.Port != cfg.Port || restored.Database != cfg.Database ||
			restored.Threads != cfg.Threads || restored.LogLevel != "warn" {
			t.Errorf("restored = %+v", restored)
		}
	})
}

func TestApplyLocalConfigKeepsUnsetValues(t *testing.T) {
	cfg := validConfig()
	ApplyLocalConfig(cfg, &LocalConfig{Replay: ReplaySection{Threads: 12}})

	if cfg.Threads != 12 {
		t.Errorf("Threads = %d, want 12", cfg.Threads)
	}
	if cfg.Host != "localhost" || cfg.Database != "shop" || cfg.Processes != 2 {
		t.Errorf("unset values were overwritten: %+v", cfg)
	}

	ApplyLocalConfig(cfg, nil)
	if cfg.Threads != 12 {
		t.Error("nil local config must be a no-op")
	}
}
