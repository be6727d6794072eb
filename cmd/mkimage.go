package main

import (
	"fmt"

	"github.com/dnaforensics/scar/pkg/config"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/spf13/cobra"
)

var (
	cmdMkimage = &cobra.Command{
		Use:   "mkimage <path> <size>",
		Short: "Create a raw disk image holding one FAT32 filesystem",
		Long:  `Size takes a b, k, m or g suffix, e.g. 10m or 1g.`,
		Args:  exactArgs(2),
		RunE:  runMkimage,
	}
)

var mkimageLabel string

func init() {
	rootCmd.AddCommand(cmdMkimage)
	cmdMkimage.Flags().StringVarP(&mkimageLabel, "label", "L", "SCAR", "Volume label")
}

func runMkimage(cmd *cobra.Command, args []string) error {
	size, err := config.ParseByteValue(args[1])
	if err != nil || size <= 0 {
		return usageError("bad size %q\nusage: %s", args[1], cmd.UseLine())
	}

	err = volume.CreateImage(args[0], size, mkimageLabel)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s, %d bytes, FAT32 label %s\n", args[0], size, mkimageLabel)
	return nil
}
