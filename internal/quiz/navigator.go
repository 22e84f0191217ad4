package quiz

// Navigator gives circular access to a fixed question bank and tracks the
// current position. Indexing wraps silently in both directions, so a quiz
// never ends: advancing past the last question returns to the first.
//
// A Navigator is not safe for concurrent use; one session owns it.
type Navigator struct {
	bank  Bank
	index int
}

// NewNavigator returns a navigator positioned on the first question.
func NewNavigator(bank Bank) (*Navigator, error) {
	return NewNavigatorAt(bank, 0)
}

// NewNavigatorAt returns a navigator positioned on index, normalised into
// [0, len(bank)).
func NewNavigatorAt(bank Bank, index int) (*Navigator, error) {
	if len(bank) == 0 {
		return nil, ErrEmptyBank
	}
	return &Navigator{bank: bank, index: wrap(index, len(bank))}, nil
}

// Len returns the number of questions in the bank.
func (n *Navigator) Len() int { return len(n.bank) }

// Index returns the current position, always in [0, Len()).
func (n *Navigator) Index() int { return n.index }

// Get returns the question at index mod Len(). Negative indexes count back
// from the end.
func (n *Navigator) Get(index int) Question {
	return n.bank[wrap(index, len(n.bank))]
}

// Current returns the question at the current position.
func (n *Navigator) Current() Question {
	return n.bank[n.index]
}

// Advance moves the current position by direction (usually +1 or -1),
// wrapping around the bank.
func (n *Navigator) Advance(direction int) {
	n.index = wrap(n.index+direction, len(n.bank))
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
