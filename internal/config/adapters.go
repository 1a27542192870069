package config

// AdaptersConfig configures the signal producers.
type AdaptersConfig struct {
	FileDrop FileDropConfig `yaml:"file_drop"`
}

// FileDropConfig configures the file-drop event adapter, which turns
// files created in a watched directory into signals.
type FileDropConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
