package entry

// Severity levels. Values above LevelCritical are custom levels.
const (
	LevelDebug    uint8 = 0
	LevelInfo     uint8 = 1
	LevelWarn     uint8 = 2
	LevelError    uint8 = 3
	LevelCritical uint8 = 4
	LevelMax      uint8 = 255
)

// LevelName returns the display name of a severity level.
func LevelName(level uint8) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name or decimal value to its number.
func ParseLevel(s string) (uint8, bool) {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug, true
	case "info", "INFO":
		return LevelInfo, true
	case "warn", "WARN":
		return LevelWarn, true
	case "error", "ERROR":
		return LevelError, true
	case "critical", "CRITICAL":
		return LevelCritical, true
	}
	var v int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
		if v > 255 {
			return 0, false
		}
	}
	if s == "" {
		return 0, false
	}
	return uint8(v), true
}

// Reserved system module ids. User modules start at ModulePerUser.
const (
	ModuleDefault  uint8 = 0
	ModuleOS       uint8 = 1
	ModuleMgmt     uint8 = 2
	ModuleBLECtlr  uint8 = 3
	ModuleBLEHost  uint8 = 4
	ModuleFS       uint8 = 5
	ModuleReboot   uint8 = 6
	ModuleIoTivity uint8 = 7
	ModuleTest     uint8 = 8
	ModulePerUser  uint8 = 64
	ModuleMax      uint8 = 255
)

// SystemModules maps the reserved ids to their fixed names.
var SystemModules = map[uint8]string{
	ModuleDefault:  "DEFAULT",
	ModuleOS:       "OS",
	ModuleMgmt:     "MGMT",
	ModuleBLECtlr:  "BLE_CTLR",
	ModuleBLEHost:  "BLE_HOST",
	ModuleFS:       "FS",
	ModuleReboot:   "REBOOT",
	ModuleIoTivity: "IOTIVITY",
	ModuleTest:     "TEST",
}
