package main

import (
	"os"
	"os/signal"
	"syscall"
)

func main() {
	s := NewServer()

	go s.Run()

	// Явный teardown: остановка hub снимает все живые подписки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.Hub.Stop()
}
