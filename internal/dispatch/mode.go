package dispatch

// Mode selects which trainer entry point runs.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeEval  Mode = "eval"
)

// ParseMode accepts exactly "train" or "eval".
func ParseMode(raw string) (Mode, error) {
	m := Mode(raw)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m Mode) Validate() error {
	switch m {
	case ModeTrain, ModeEval:
		return nil
	default:
		return &InvalidRunModeError{Mode: string(m)}
	}
}
