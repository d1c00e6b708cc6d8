package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) expirePayments() error {
	n, err := cli.paymentSvc.ExpireStale(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("expired %d stale payment(s)\n", n)
	return nil
}
