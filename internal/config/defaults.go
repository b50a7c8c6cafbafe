package config

const (
	defaultStateDir        = "~/.local/share/completearr"
	defaultLogDir          = "~/.local/share/completearr/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultGraceDays       = 15
	defaultPostMoveWait    = 5
	defaultCallSpacingMS   = 250
	defaultRequestTimeout  = 30
	defaultVerifyMode      = "remote"
	defaultVerifyRetries   = 3
	defaultVerifyDelay     = 5
	defaultVerifyIncrement = 5
	defaultIntervalMinutes = 360
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Behavior: Behavior{
			GraceDays:                defaultGraceDays,
			PostMoveWait:             defaultPostMoveWait,
			APICallSpacingMillis:     defaultCallSpacingMS,
			RequestTimeout:           defaultRequestTimeout,
			MonitorBonusWhenComplete: true,
			MoveVerification: MoveVerification{
				Enabled:          true,
				Mode:             defaultVerifyMode,
				Retries:          defaultVerifyRetries,
				InitialDelay:     defaultVerifyDelay,
				BackoffIncrement: defaultVerifyIncrement,
				RevertOnFailure:  true,
			},
		},
		Schedule: Schedule{
			IntervalMinutes: defaultIntervalMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
