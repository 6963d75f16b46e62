package repository

//go:generate mockgen -destination=gomock/user_repository_mock.go -package=repogomock . UserRepository
//go:generate mockgen -destination=gomock/refresh_token_repository_mock.go -package=repogomock . RefreshTokenRepository
//go:generate mockgen -destination=gomock/slot_repository_mock.go -package=repogomock . SlotRepository
