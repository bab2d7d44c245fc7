package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) setHouseGuardian(studentID string, isHG bool) error {
	s, err := cli.studentSvc.SetHouseGuardian(context.Background(), studentID, isHG)
	if err != nil {
		return err
	}
	fmt.Printf("%s: house guardian = %t\n", s.StudentID, s.IsHouseGuardian)
	return nil
}
