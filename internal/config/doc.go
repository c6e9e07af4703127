// Package config загружает конфигурацию Chronos.
//
// Источники (по возрастанию приоритета):
//
//  1. значения по умолчанию (Default)
//  2. YAML-файл из CONFIG_FILE
//  3. переменные окружения
//
// Пример файла:
//
//	schedule:
//	  times: ["08:00", "22:00"]
//	  timezone: Europe/Moscow
//	  window: 5m
//	  cooldown: 10m
//	scraper:
//	  command: python3 main.py
//	  dir: /app
//	  venv: /app/venv
//	log_file: logs/cron.log
//
// Конфигурация проверяется целиком до старта; невалидная — фатальна.
package config
