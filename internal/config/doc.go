// Package config 负责加载宿主配置：YAML 文件、RADIAL_* 环境变量覆盖以及默认值。
package config
