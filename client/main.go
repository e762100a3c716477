package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/uakfdotb/p-levelup/client/app"
	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
)

var (
	configFile string
	host       string
	name       string
)

var rootCmd = &cobra.Command{
	Use:   "client",
	Short: "levelup 终端客户端",
	Run: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(configFile)
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		conf := loaded.Current()
		if host != "" {
			conf.Client.Host = host
		}
		if name != "" {
			conf.Client.Name = name
		}
		if err := log.InitLog(conf.AppName+"-client", conf.Log.Level, conf.Log.Path); err != nil {
			log.Fatal("日志初始化失败：%v", err)
		}

		if err := app.Run(context.Background(), loaded); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "resource file")
	rootCmd.Flags().StringVar(&host, "host", "", "server host, overrides client.host")
	rootCmd.Flags().StringVar(&name, "name", "", "player name, overrides client.name")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
