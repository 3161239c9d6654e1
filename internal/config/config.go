package config

import "time"

// Config bookd 的全部配置面。零值不可用，入口先拿 Default 再让
// viper 覆盖。
type Config struct {
	Name string `mapstructure:"name"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
	Engine struct {
		QueueSize int  `mapstructure:"queue_size"`
		SelfCheck bool `mapstructure:"self_check"`
	} `mapstructure:"engine"`
	Market struct {
		TickSize string `mapstructure:"tick_size"`
		QtyStep  string `mapstructure:"qty_step"`
	} `mapstructure:"market"`
	WS struct {
		SendBuf    int           `mapstructure:"send_buf"`
		PongWait   time.Duration `mapstructure:"pong_wait"`
		PingPeriod time.Duration `mapstructure:"ping_period"`
		WriteWait  time.Duration `mapstructure:"write_wait"`
		ReadLimit  int64         `mapstructure:"read_limit"`
		MsgRate    float64       `mapstructure:"msg_rate"`
		MsgBurst   int           `mapstructure:"msg_burst"`
		ConnRate   float64       `mapstructure:"conn_rate"`
		ConnBurst  int           `mapstructure:"conn_burst"`
	} `mapstructure:"ws"`
	UIFile string `mapstructure:"ui_file"`
}

func Default() Config {
	var c Config
	c.Name = "bookd"
	c.HTTP.Addr = ":8080"
	c.Log.Level = "info"
	c.Engine.QueueSize = 4096
	c.Market.TickSize = "0.01"
	c.Market.QtyStep = "0.001"
	c.UIFile = "web/index.html"
	return c
}
