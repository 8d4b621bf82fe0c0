// @title UnicodePrep 后端 API
// @version 1.0
// @description UnicodePrep 刷题与模拟面试平台的进度追踪后端。

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"unicodeprep_backend/internal/app"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/pkg/configwatcher"
	"unicodeprep_backend/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	watchConfig := flag.Bool("watch-config", false, "监听配置文件变更并热加载")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *watchConfig {
		go configwatcher.WatchConfig(*configDir+"/config.yaml", application.ApplyConfig)
	}

	application.Run()
}
