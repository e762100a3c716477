package game

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// LoadInfo 负载信息
type LoadInfo struct {
	TableCount  int     `json:"tableCount"`  // 当前牌桌数
	PlayerCount int     `json:"playerCount"` // 当前连接数
	CPUUsage    float64 `json:"cpuUsage"`    // CPU 使用率（0-100）
	MemUsage    float64 `json:"memUsage"`    // 内存使用率（0-100）
	Load        float64 `json:"load"`
}

// CalculateLoad 计算综合负载评分
// 权重：CPU 30%、内存 20%、牌桌数 25%、玩家数 25%
// 返回值越小表示负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	normalizedTableCount := min(float64(li.TableCount)/100.0, 1.0)
	normalizedPlayerCount := min(float64(li.PlayerCount)/400.0, 1.0)
	return li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedTableCount*100*0.25 + normalizedPlayerCount*100*0.25
}

// sampleSystem 读取系统 CPU 和内存使用率，失败的项为 0
func sampleSystem() (cpuUsage, memUsage float64) {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		cpuUsage = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsage = vm.UsedPercent
	}
	return cpuUsage, memUsage
}
