package container

import (
	app "leafbot/internal/application"
	"leafbot/internal/domain/port"
)

type Container struct {
	UserService *app.UserService
	ScanService *app.ScanService
}

func New(userRepo port.UserRepository, scanRepo port.ScanRepository, detector port.LeafDetector, measurer *app.MeasureService) *Container {
	userService := app.NewUserService(userRepo)
	scanService := app.NewScanService(userService, detector, measurer, scanRepo)

	return &Container{
		UserService: userService,
		ScanService: scanService,
	}
}
