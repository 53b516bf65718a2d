package graphanalyzer

import "testing"

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				Paths:   []string{"./backend"},
				Org:     "acme",
				Project: "billing",
			},
			wantErr: false,
		},
		{
			name: "missing paths",
			config: Config{
				Org:     "acme",
				Project: "billing",
			},
			wantErr: true,
		},
		{
			name: "missing org",
			config: Config{
				Paths:   []string{"./backend"},
				Project: "billing",
			},
			wantErr: true,
		},
		{
			name: "missing project",
			config: Config{
				Paths: []string{"./backend"},
				Org:   "acme",
			},
			wantErr: true,
		},
		{
			name: "bad index interval",
			config: Config{
				Paths:         []string{"./backend"},
				Org:           "acme",
				Project:       "billing",
				IndexInterval: "sometimes",
			},
			wantErr: true,
		},
		{
			name: "negative index interval",
			config: Config{
				Paths:         []string{"./backend"},
				Org:           "acme",
				Project:       "billing",
				IndexInterval: "-5m",
			},
			wantErr: true,
		},
		{
			name: "negative workers",
			config: Config{
				Paths:   []string{"./backend"},
				Org:     "acme",
				Project: "billing",
				Workers: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Org = "acme"
	cfg.Project = "billing"
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.Ports == nil || len(cfg.Ports.Outputs) != 1 {
		t.Fatal("default config should define one output port")
	}
	out := cfg.Ports.Outputs[0]
	if out.Subject != "graph.ingest.entity" || out.Type != "jetstream" {
		t.Errorf("unexpected output port: %+v", out)
	}
}
