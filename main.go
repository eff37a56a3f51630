package main

import (
	"os"

	"github.com/golang/glog"
	"github.com/lainio/err2"

	"github.com/vanir-network/vanir-agency/cmd"
)

func main() {
	defer err2.Catch(func(err error) error {
		glog.Error(err)
		os.Exit(1)
		return nil
	})

	cmd.Execute()
}
