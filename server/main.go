package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/common/metrics"
	"github.com/uakfdotb/p-levelup/server/app"
)

// 加载配置 -> 启动监控 -> 启动牌桌服务

var configFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "levelup 升级牌局服务",
	Long:  `levelup 升级牌局服务，TCP 和 websocket 上的二进制帧协议`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(configFile)
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		conf := loaded.Current()
		if err := log.InitLog(conf.AppName, conf.Log.Level, conf.Log.Path); err != nil {
			log.Fatal("日志初始化失败：%v", err)
		}
		log.Info("配置文件: %+v", conf.Server)

		if conf.Server.MetricPort > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d%s", conf.Server.MetricPort, metrics.Path)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", conf.Server.MetricPort)); err != nil {
					log.Error("监控服务退出: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background(), loaded); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "resource file")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
