package main

import (
	"context"
	"time"
)

func (cli *commandLine) generateFees(period string, amount int64, dueDate time.Time) error {
	created, err := cli.feeSvc.GenerateMonthly(context.Background(), period, amount, dueDate)
	if err != nil {
		return err
	}
	std.Printf("%d fee(s) created for period %s", created, period)
	return nil
}
