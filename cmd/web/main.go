package main

import "dropnest_backend/internal/app"

func main() {
	app.Run()
}
