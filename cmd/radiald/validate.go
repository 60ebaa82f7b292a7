package main

import (
	"fmt"

	"github.com/spf13/cobra"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/loader"
	"RadialCore/pkg/plugin"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "校验插件清单文件 (.yaml/.toml) 并检查核心版本兼容性",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := plugin.LoadManifestFile(args[0])
			if err != nil {
				return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取清单失败")
			}
			m, err := file.Build()
			if err != nil {
				return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "清单无效")
			}
			if !loader.CoreVersion.IsCompatibleWith(m.RequiredCoreVersion()) {
				return xerrors.New(xerrors.CodeIncompatibleVersion,
					fmt.Sprintf("插件 %s 需要核心版本 %s，当前为 %s", m.ID(), m.RequiredCoreVersion(), loader.CoreVersion))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s 有效，兼容核心版本 %s\n", m, loader.CoreVersion)
			return nil
		},
	}
}
