package booking

import "slotwise/internal/models"

// transitions is the booking lifecycle: confirmed may cancel, complete
// or reschedule (confirmed → confirmed as an atomic interval replace);
// cancelled and completed are terminal.
var transitions = map[string][]string{
	models.StatusConfirmed: {
		models.StatusCancelled,
		models.StatusCompleted,
		models.StatusConfirmed,
	},
	models.StatusCancelled: {},
	models.StatusCompleted: {},
}

// canTransition checks if a status transition is allowed.
func canTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// guardTransition maps an illegal transition to the error taxonomy.
func guardTransition(b *models.Booking, to string) error {
	if canTransition(b.Status, to) {
		return nil
	}
	if b.Status == models.StatusCancelled && to == models.StatusCancelled {
		return models.ErrAlreadyCancelled
	}
	return models.ErrInvalidState
}
