package services

import "github.com/vgnam/Library-Management-System-sub000/utils"

// Services bundles every use case over one Env so handlers and workers can
// be wired from a single value.
type Services struct {
	Env           *Env
	Auth          *AuthService
	Catalog       *CatalogService
	Infractions   *InfractionService
	Borrow        *BorrowService
	Returns       *ReturnService
	Penalties     *PenaltyService
	History       *HistoryService
	Acquisition   *AcquisitionService
	Librarian     *LibrarianService
	Manager       *ManagerService
	Notifications *NotificationService
	Reminders     *ReminderService
}

func New(env *Env, tokens *utils.TokenIssuer, registerOffice string) *Services {
	inf := NewInfractionService(env)
	pen := NewPenaltyService(env)
	return &Services{
		Env:           env,
		Auth:          NewAuthService(env, tokens, registerOffice),
		Catalog:       NewCatalogService(env, inf),
		Infractions:   inf,
		Borrow:        NewBorrowService(env, inf),
		Returns:       NewReturnService(env, inf),
		Penalties:     pen,
		History:       NewHistoryService(env, inf),
		Acquisition:   NewAcquisitionService(env),
		Librarian:     NewLibrarianService(env, inf),
		Manager:       NewManagerService(env, pen, inf),
		Notifications: NewNotificationService(env),
		Reminders:     NewReminderService(env),
	}
}
