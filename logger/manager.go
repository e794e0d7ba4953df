package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns one logger per module
type Manager struct {
	baseConfig ManagerConfig
	loggers    map[string]*CtxZapLogger        // module -> CtxZapLogger
	zapLoggers map[string]*zap.Logger          // module -> underlying zap.Logger
	writers    map[string][]*lumberjack.Logger // module -> file writers (closed by CloseAll)
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates an independent Manager
// Zero-valued fields in cfg are filled with defaults
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		baseConfig: cfg,
		loggers:    make(map[string]*CtxZapLogger, cfg.ModuleNumber),
		zapLoggers: make(map[string]*zap.Logger, cfg.ModuleNumber),
		writers:    make(map[string][]*lumberjack.Logger, cfg.ModuleNumber),
	}
}

// InitManager initializes the global manager (first call wins)
func InitManager(cfg ManagerConfig) {
	managerOnce.Do(func() {
		globalManager = NewManager(cfg)
	})
}

// Config returns the manager configuration
func (m *Manager) Config() ManagerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseConfig
}

// GetLogger returns the module logger, creating it on first use
// The returned logger already carries the module field
func (m *Manager) GetLogger(moduleName string) *CtxZapLogger {
	m.mu.RLock()
	if l, ok := m.loggers[moduleName]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// double check
	if l, ok := m.loggers[moduleName]; ok {
		return l
	}

	cfg := m.buildModuleConfig(moduleName)
	zapLogger := m.createLogger(cfg).With(zap.String("module", moduleName))

	ctxLogger := &CtxZapLogger{
		// skip the CtxZapLogger wrapper frame
		base:   zapLogger.WithOptions(zap.AddCallerSkip(1)),
		module: moduleName,
		config: &m.baseConfig,
	}

	m.loggers[moduleName] = ctxLogger
	m.zapLoggers[moduleName] = zapLogger
	return ctxLogger
}

func (m *Manager) buildModuleConfig(moduleName string) Config {
	return Config{
		Level:                 m.baseConfig.Level,
		Encoding:              m.baseConfig.Encoding,
		ConsoleEncoding:       m.baseConfig.ConsoleEncoding,
		moduleName:            moduleName,
		logDir:                m.baseConfig.BaseLogDir,
		EnableFile:            m.baseConfig.EnableFile,
		EnableConsole:         m.baseConfig.EnableConsole,
		EnableLevelInFilename: m.baseConfig.EnableLevelInFilename,
		EnableDateInFilename:  m.baseConfig.EnableDateInFilename,
		DateFormat:            m.baseConfig.DateFormat,
		MaxSize:               m.baseConfig.MaxSize,
		MaxBackups:            m.baseConfig.MaxBackups,
		MaxAge:                m.baseConfig.MaxAge,
		Compress:              m.baseConfig.Compress,
		EnableCaller:          m.baseConfig.EnableCaller,
	}
}

// createLogger builds console + info file + error file cores
func (m *Manager) createLogger(cfg Config) *zap.Logger {
	encoder := createEncoder(cfg.Encoding)
	level := ParseLevel(cfg.Level)
	var cores []zapcore.Core
	var writers []*lumberjack.Logger

	if cfg.EnableConsole {
		consoleEncoder := encoder
		if cfg.ConsoleEncoding != "" && cfg.ConsoleEncoding != cfg.Encoding {
			consoleEncoder = createEncoder(cfg.ConsoleEncoding)
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableFile {
		infoWriter, infoLumber := createFileWriter(cfg.buildFilePath("info"), cfg)
		errorWriter, errorLumber := createFileWriter(cfg.buildFilePath("error"), cfg)
		writers = append(writers, infoLumber, errorLumber)

		// info file keeps [configured level, error), error file keeps >= error
		cores = append(cores,
			zapcore.NewCore(encoder, infoWriter, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			})),
			zapcore.NewCore(encoder, errorWriter, zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			})),
		)
	}

	if len(writers) > 0 {
		m.writers[cfg.moduleName] = writers
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	// stack traces are added by CtxZapLogger.ErrorCtx with a bounded depth
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// CloseAll flushes buffers and closes file handles
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	for _, l := range m.zapLoggers {
		_ = l.Sync()
	}
	for _, writers := range m.writers {
		for _, w := range writers {
			_ = w.Close()
		}
	}
	m.loggers = make(map[string]*CtxZapLogger)
	m.zapLoggers = make(map[string]*zap.Logger)
	m.writers = make(map[string][]*lumberjack.Logger)
}

// ReloadConfig validates newCfg and rebuilds every module logger lazily
func (m *Manager) ReloadConfig(newCfg ManagerConfig) error {
	newCfg.ApplyDefaults()
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("new logger config is invalid: %w", err)
	}

	m.mu.Lock()
	oldLevel := m.baseConfig.Level
	m.closeLocked()
	m.baseConfig = newCfg
	m.mu.Unlock()

	// log after releasing the lock, GetLogger takes it again
	if oldLevel != newCfg.Level {
		m.GetLogger("logger").Debug("log level updated",
			zap.String("old_level", oldLevel),
			zap.String("new_level", newCfg.Level))
	}
	return nil
}

func createEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// createFileWriter returns a rotating writer and the lumberjack handle used to close it
func createFileWriter(filename string, cfg Config) (zapcore.WriteSyncer, *lumberjack.Logger) {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	lumberLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return zapcore.AddSync(lumberLogger), lumberLogger
}

// GetLogger returns a module logger from the global manager
// The global manager is created with defaults when InitManager was never called
func GetLogger(moduleName string) *CtxZapLogger {
	InitManager(DefaultManagerConfig())
	return globalManager.GetLogger(moduleName)
}

// CloseAll closes the global manager
func CloseAll() {
	if globalManager == nil {
		return
	}
	globalManager.CloseAll()
}

// ReloadConfig reloads the global manager
func ReloadConfig(newCfg ManagerConfig) error {
	if globalManager == nil {
		return fmt.Errorf("logger manager is not initialized")
	}
	return globalManager.ReloadConfig(newCfg)
}
