package main

import "teamchat-backend/internal/app"

func main() {
	app.Run()
}
